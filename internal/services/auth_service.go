package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"decisiondeck/internal/auth"
	"decisiondeck/internal/models"
	"decisiondeck/internal/store"
)

type AuthStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserById(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type AuthService struct {
	store  AuthStore
	tokens *auth.Tokens
	now    func() time.Time
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func NewAuthService(s AuthStore, tokens *auth.Tokens) *AuthService {
	return &AuthService{store: s, tokens: tokens, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, handle, email, password string) (*AuthResult, error) {
	handle = strings.TrimSpace(handle)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(handle) < 2 || len(handle) > 32 {
		return nil, NewInvalidError("handle 长度需在 2-32 之间")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, NewInvalidError("email 格式不正确")
	}
	if len(password) < 8 {
		return nil, NewInvalidError("密码至少 8 位")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &models.User{
		Id:        uuid.NewString(),
		Handle:    handle,
		Email:     email,
		Password:  hash,
		Role:      models.RoleVoter,
		Status:    models.UserStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, wrapStore(err, "用户不存在", "handle 或 email 已被占用")
	}
	token, err := s.tokens.Sign(u.Id, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewUnauthorizedError("邮箱或密码错误")
		}
		return nil, err
	}
	if !auth.CheckPassword(u.Password, password) {
		return nil, NewUnauthorizedError("邮箱或密码错误")
	}
	if !u.Active() {
		return nil, NewUnauthorizedError("账号已停用")
	}
	now := s.now()
	if err := s.store.TouchLastLogin(ctx, u.Id, now); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	token, err := s.tokens.Sign(u.Id, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

// Verify 每次请求都做签名 + 过期 + 账号有效性三重校验。
func (s *AuthService) Verify(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, NewUnauthorizedError("token 无效或已过期")
	}
	u, err := s.store.UserById(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewUnauthorizedError("token 无效或已过期")
		}
		return nil, err
	}
	if !u.Active() {
		return nil, NewUnauthorizedError("账号已停用")
	}
	return u, nil
}
