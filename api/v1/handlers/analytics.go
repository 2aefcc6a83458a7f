package handlers

import (
	"github.com/gofiber/fiber/v2"

	"decisiondeck/internal/services"
)

type AnalyticsHandle struct {
	svc *services.AnalyticsService
}

func RegisterAnalytics(r fiber.Router, svc *services.AnalyticsService, auth *services.AuthService) {
	handler := AnalyticsHandle{svc: svc}

	r.Use(RequireAuth(auth))
	r.Get("/realtime", handler.Realtime)

	admin := r.Group("/", RequireAdmin())
	admin.Get("/dashboard", handler.Dashboard)
	admin.Get("/candidates/:id", handler.Candidate)
	admin.Get("/positions/:position", handler.Position)
	admin.Get("/users/behavior", handler.UserBehavior)
}

func (h *AnalyticsHandle) Dashboard(c *fiber.Ctx) error {
	out, err := h.svc.Dashboard(c.UserContext(), c.Query("timeRange", "24h"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *AnalyticsHandle) Candidate(c *fiber.Ctx) error {
	out, err := h.svc.CandidateAnalytics(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *AnalyticsHandle) Position(c *fiber.Ctx) error {
	out, err := h.svc.PositionAnalytics(c.UserContext(), c.Params("position"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *AnalyticsHandle) UserBehavior(c *fiber.Ctx) error {
	out, err := h.svc.UserBehavior(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *AnalyticsHandle) Realtime(c *fiber.Ctx) error {
	out, err := h.svc.Realtime(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}
