package handlers

import (
	"github.com/gofiber/fiber/v2"

	"decisiondeck/internal/services"
)

type CandidateHandle struct {
	svc *services.CandidateService
}

func RegisterCandidates(r fiber.Router, svc *services.CandidateService, auth *services.AuthService) {
	handler := CandidateHandle{svc: svc}

	r.Get("/", handler.List)
	r.Get("/positions", handler.Positions)
	r.Get("/:id", handler.Get)

	admin := r.Group("/", RequireAuth(auth), RequireAdmin())
	admin.Post("/", handler.Create)
	admin.Put("/:id", handler.Update)
	admin.Delete("/:id", handler.Retire)
	admin.Put("/:id/reactivate", handler.Reactivate)
}

func (h *CandidateHandle) List(c *fiber.Ctx) error {
	activeOnly := c.QueryBool("active", true)
	if position := c.Query("position"); position != "" {
		out, err := h.svc.ListByPosition(c.UserContext(), position, activeOnly)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(out)
	}
	out, err := h.svc.List(c.UserContext(), activeOnly)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *CandidateHandle) Positions(c *fiber.Ctx) error {
	out, err := h.svc.Positions(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"positions": out})
}

func (h *CandidateHandle) Get(c *fiber.Ctx) error {
	out, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *CandidateHandle) Create(c *fiber.Ctx) error {
	var in services.CandidateInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, services.NewInvalidError("请求体不是合法 JSON"))
	}
	out, err := h.svc.Create(c.UserContext(), in)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

func (h *CandidateHandle) Update(c *fiber.Ctx) error {
	var in services.CandidateInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, services.NewInvalidError("请求体不是合法 JSON"))
	}
	out, err := h.svc.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *CandidateHandle) Retire(c *fiber.Ctx) error {
	if err := h.svc.Retire(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CandidateHandle) Reactivate(c *fiber.Ctx) error {
	if err := h.svc.Reactivate(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
