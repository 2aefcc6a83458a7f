package services

import (
	"context"

	"decisiondeck/internal/models"
)

type UserStore interface {
	UserById(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.UserRole) error
	UpdateUserStatus(ctx context.Context, id string, status models.UserStatus) error
}

// UserService 管理员侧账号管理，只软停用不删行，票据引用不悬空。
type UserService struct {
	store UserStore
}

func NewUserService(s UserStore) *UserService {
	return &UserService{store: s}
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.UserById(ctx, id)
	if err != nil {
		return nil, wrapStore(err, "用户不存在", "")
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, page, pageSize int) ([]*models.User, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return s.store.ListUsers(ctx, pageSize, (page-1)*pageSize)
}

func (s *UserService) SetRole(ctx context.Context, id string, role models.UserRole) error {
	if role != models.RoleVoter && role != models.RoleAdmin {
		return NewInvalidError("role 只支持 voter/admin")
	}
	return wrapStore(s.store.UpdateUserRole(ctx, id, role), "用户不存在", "")
}

func (s *UserService) Deactivate(ctx context.Context, id string) error {
	return wrapStore(s.store.UpdateUserStatus(ctx, id, models.UserStatusDisabled), "用户不存在", "")
}

func (s *UserService) Reactivate(ctx context.Context, id string) error {
	return wrapStore(s.store.UpdateUserStatus(ctx, id, models.UserStatusActive), "用户不存在", "")
}
