package handlers

import (
	"net/netip"
	"time"

	"github.com/gofiber/fiber/v2"

	"decisiondeck/internal/auth"
	"decisiondeck/internal/services"
)

type VoteHandle struct {
	votes  *services.VoteService
	query  *services.QueryService
	secret string
}

func RegisterVotes(r fiber.Router, votes *services.VoteService, query *services.QueryService, authSvc *services.AuthService, secret string) {
	handler := VoteHandle{votes: votes, query: query, secret: secret}

	r.Get("/results/:position", handler.Results)

	authed := r.Group("/", RequireAuth(authSvc))
	authed.Post("/", handler.Cast)
	authed.Get("/history", handler.History)
	authed.Get("/stats/overview", handler.Overview)

	admin := authed.Group("/", RequireAdmin())
	admin.Get("/stats/admin", handler.AdminStats)
	admin.Put("/:id/invalidate", handler.Invalidate)
}

type castRequest struct {
	CandidateId string `json:"candidateId"`
	Position    string `json:"position"`
}

func (h *VoteHandle) Cast(c *fiber.Ctx) error {
	var req castRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, services.NewInvalidError("请求体不是合法 JSON"))
	}

	u := CurrentUser(c)
	meta := services.VoteMeta{
		IpHash: auth.FingerprintIP(h.secret, c.IP()),
		Device: auth.ClassifyDevice(c.Get(fiber.HeaderUserAgent)),
	}
	if addr, err := netip.ParseAddr(c.IP()); err == nil {
		meta.Ip = &addr
	}
	res, err := h.votes.Cast(c.UserContext(), u.Id, req.CandidateId, req.Position, meta)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"voteId":      res.Vote.Id,
		"position":    res.Vote.Position,
		"candidateId": res.Vote.CandidateId,
		"timestamp":   res.Vote.CreatedAt,
		"newCount":    res.NewCount,
	})
}

func (h *VoteHandle) Results(c *fiber.Ctx) error {
	out, err := h.query.ResultsForPosition(c.UserContext(), c.Params("position"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *VoteHandle) History(c *fiber.Ctx) error {
	u := CurrentUser(c)
	out, err := h.query.VoterHistory(c.UserContext(), u.Id, c.QueryInt("page", 1), c.QueryInt("limit", 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *VoteHandle) Overview(c *fiber.Ctx) error {
	out, err := h.query.OverviewStats(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *VoteHandle) AdminStats(c *fiber.Ctx) error {
	from, err := parseDate(c.Query("startDate"))
	if err != nil {
		return fail(c, services.NewInvalidError("startDate 格式应为 2006-01-02"))
	}
	to, err := parseDate(c.Query("endDate"))
	if err != nil {
		return fail(c, services.NewInvalidError("endDate 格式应为 2006-01-02"))
	}
	if !to.IsZero() {
		// endDate 为闭区间日期，窗口推到次日零点
		to = to.AddDate(0, 0, 1)
	}
	out, err := h.query.AdminStats(c.UserContext(), from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func (h *VoteHandle) Invalidate(c *fiber.Ctx) error {
	out, err := h.votes.Invalidate(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}
