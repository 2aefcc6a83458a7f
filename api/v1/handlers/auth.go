package handlers

import (
	"github.com/gofiber/fiber/v2"

	"decisiondeck/internal/services"
)

type AuthHandle struct {
	svc *services.AuthService
}

func RegisterAuth(auth fiber.Router, svc *services.AuthService) {
	handler := AuthHandle{svc: svc}

	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Get("/me", RequireAuth(svc), handler.Me)
}

type registerRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandle) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, services.NewInvalidError("请求体不是合法 JSON"))
	}
	res, err := h.svc.Register(c.UserContext(), req.Handle, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandle) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, services.NewInvalidError("请求体不是合法 JSON"))
	}
	res, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(res)
}

func (h *AuthHandle) Me(c *fiber.Ctx) error {
	return c.JSON(CurrentUser(c))
}
