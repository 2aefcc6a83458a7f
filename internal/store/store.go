package store

import (
	"context"
	"errors"
	"time"

	"decisiondeck/internal/models"
)

var (
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate 唯一约束冲突，并发提交由存储层裁决
	ErrDuplicate = errors.New("store: duplicate")
	// ErrConflict 状态不允许该变更（如重复作废）
	ErrConflict = errors.New("store: conflict")
)

// VoteFilter 按需组合的查询条件，零值字段忽略。
type VoteFilter struct {
	VoterId     string
	CandidateId string
	Position    string
	ValidOnly   bool
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}

// Store 聚合全部集合操作，Postgres 与 Memory 均实现。
// 服务层按需声明窄接口，这里只做装配入口。
type Store interface {
	// users
	CreateUser(ctx context.Context, u *models.User) error
	UserById(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.UserRole) error
	UpdateUserStatus(ctx context.Context, id string, status models.UserStatus) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	BumpVoterCounters(ctx context.Context, voterId string, newPosition bool) error
	CountActiveUsers(ctx context.Context) (int, error)

	// candidates
	CreateCandidate(ctx context.Context, c *models.Candidate) error
	CandidateById(ctx context.Context, id string) (*models.Candidate, error)
	CandidatesByPosition(ctx context.Context, position string, activeOnly bool) ([]*models.Candidate, error)
	ListCandidates(ctx context.Context, activeOnly bool) ([]*models.Candidate, error)
	UpdateCandidate(ctx context.Context, c *models.Candidate) error
	SetCandidateStatus(ctx context.Context, id string, status models.CandidateStatus) error
	Positions(ctx context.Context) ([]string, error)
	IncrementVoteCount(ctx context.Context, candidateId string) (int, error)
	DecrementVoteCount(ctx context.Context, candidateId string) (int, error)

	// votes
	InsertVote(ctx context.Context, v *models.Vote) error
	VoteById(ctx context.Context, id string) (*models.Vote, error)
	MarkVoteInvalid(ctx context.Context, id string, at time.Time) error
	ListVotes(ctx context.Context, f VoteFilter) ([]*models.Vote, error)
	CountVotes(ctx context.Context, f VoteFilter) (int, error)
}
