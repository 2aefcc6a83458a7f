package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"decisiondeck/internal/models"
	"decisiondeck/internal/services"
)

const localUser = "current_user"

// fail 边界统一出错：服务错误映射状态码，其余按 500 兜底且不外泄细节。
func fail(c *fiber.Ctx, err error) error {
	if se, ok := services.AsServiceError(err); ok {
		return c.Status(statusOf(se.Code)).JSON(fiber.Map{
			"error": se.Message,
			"code":  se.Code,
		})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("请求处理失败")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func statusOf(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return fiber.StatusBadRequest
	case services.ErrorUnauthorized:
		return fiber.StatusUnauthorized
	case services.ErrorForbidden:
		return fiber.StatusForbidden
	case services.ErrorNotFound:
		return fiber.StatusNotFound
	case services.ErrorConflict:
		return fiber.StatusConflict
	case services.ErrorUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// tokenFrom Header 优先，其次 cookie，最后 query（websocket 握手用）。
func tokenFrom(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if tok := c.Cookies("token"); tok != "" {
		return tok
	}
	return c.Query("token")
}

// RequireAuth 校验通过后把用户放进 Locals。
func RequireAuth(svc *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := tokenFrom(c)
		if tok == "" {
			return fail(c, services.NewUnauthorizedError("缺少 token"))
		}
		u, err := svc.Verify(c.UserContext(), tok)
		if err != nil {
			return fail(c, err)
		}
		c.Locals(localUser, u)
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := CurrentUser(c)
		if u == nil || u.Role != models.RoleAdmin {
			return fail(c, services.NewForbiddenError("需要管理员权限"))
		}
		return c.Next()
	}
}

func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(localUser).(*models.User)
	return u
}
