package handlers

import (
	"github.com/gofiber/fiber/v2"

	"decisiondeck/internal/models"
	"decisiondeck/internal/services"
)

type UserHandle struct {
	svc *services.UserService
}

func RegisterUsers(r fiber.Router, svc *services.UserService, auth *services.AuthService) {
	handler := UserHandle{svc: svc}

	r.Use(RequireAuth(auth), RequireAdmin())
	r.Get("/", handler.List)
	r.Get("/:id", handler.Get)
	r.Put("/:id/role", handler.SetRole)
	r.Put("/:id/status", handler.SetStatus)
}

func (h *UserHandle) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), c.QueryInt("page", 1), c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *UserHandle) Get(c *fiber.Ctx) error {
	out, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

type roleRequest struct {
	Role models.UserRole `json:"role"`
}

func (h *UserHandle) SetRole(c *fiber.Ctx) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, services.NewInvalidError("请求体不是合法 JSON"))
	}
	if err := h.svc.SetRole(c.UserContext(), c.Params("id"), req.Role); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type statusRequest struct {
	Active bool `json:"active"`
}

func (h *UserHandle) SetStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, services.NewInvalidError("请求体不是合法 JSON"))
	}
	var err error
	if req.Active {
		err = h.svc.Reactivate(c.UserContext(), c.Params("id"))
	} else {
		err = h.svc.Deactivate(c.UserContext(), c.Params("id"))
	}
	if err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
