package v1

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"decisiondeck/api/v1/handlers"
	"decisiondeck/internal/realtime"
	"decisiondeck/internal/services"
)

type Deps struct {
	Auth       *services.AuthService
	Users      *services.UserService
	Candidates *services.CandidateService
	Votes      *services.VoteService
	Query      *services.QueryService
	Analytics  *services.AnalyticsService
	Hub        *realtime.Hub

	JWTSecret string
	SystemKey string

	AuthRateMax    int
	AuthRateWindow time.Duration
}

func SetupRoutes(app *fiber.App, d Deps) {
	api := app.Group("/api/v1")

	// 固定窗口限流只罩认证口，按客户端地址计数
	authGroup := api.Group("/auth", limiter.New(limiter.Config{
		Max:        d.AuthRateMax,
		Expiration: d.AuthRateWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))
	handlers.RegisterAuth(authGroup, d.Auth)

	handlers.RegisterCandidates(api.Group("/candidates"), d.Candidates, d.Auth)
	handlers.RegisterVotes(api.Group("/votes"), d.Votes, d.Query, d.Auth, d.JWTSecret)
	handlers.RegisterAnalytics(api.Group("/analytics"), d.Analytics, d.Auth)
	handlers.RegisterUsers(api.Group("/users"), d.Users, d.Auth)
	handlers.RegisterSystem(api.Group("/system"), d.SystemKey)

	handlers.RegisterRealtime(app, d.Hub, d.Auth)
}
