package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"decisiondeck/internal/models"
)

type CandidateStore interface {
	CreateCandidate(ctx context.Context, c *models.Candidate) error
	CandidateById(ctx context.Context, id string) (*models.Candidate, error)
	CandidatesByPosition(ctx context.Context, position string, activeOnly bool) ([]*models.Candidate, error)
	ListCandidates(ctx context.Context, activeOnly bool) ([]*models.Candidate, error)
	UpdateCandidate(ctx context.Context, c *models.Candidate) error
	SetCandidateStatus(ctx context.Context, id string, status models.CandidateStatus) error
	Positions(ctx context.Context) ([]string, error)
}

type CandidateService struct {
	store CandidateStore
	now   func() time.Time
}

func NewCandidateService(s CandidateStore) *CandidateService {
	return &CandidateService{store: s, now: time.Now}
}

type CandidateInput struct {
	Name        string `json:"name"`
	Position    string `json:"position"`
	Party       string `json:"party"`
	Description string `json:"description"`
	ImageUrl    string `json:"image_url"`
}

func (in *CandidateInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewInvalidError("name 不能为空")
	}
	if strings.TrimSpace(in.Position) == "" {
		return NewInvalidError("position 不能为空")
	}
	return nil
}

func (s *CandidateService) Create(ctx context.Context, in CandidateInput) (*models.Candidate, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	c := &models.Candidate{
		Id:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Position:    strings.TrimSpace(in.Position),
		Party:       in.Party,
		Description: in.Description,
		ImageUrl:    in.ImageUrl,
		Status:      models.CandidateStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateCandidate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CandidateService) Get(ctx context.Context, id string) (*models.Candidate, error) {
	c, err := s.store.CandidateById(ctx, id)
	if err != nil {
		return nil, wrapStore(err, "候选人不存在", "")
	}
	return c, nil
}

func (s *CandidateService) ListByPosition(ctx context.Context, position string, activeOnly bool) ([]*models.Candidate, error) {
	return s.store.CandidatesByPosition(ctx, position, activeOnly)
}

func (s *CandidateService) List(ctx context.Context, activeOnly bool) ([]*models.Candidate, error) {
	return s.store.ListCandidates(ctx, activeOnly)
}

func (s *CandidateService) Positions(ctx context.Context) ([]string, error) {
	return s.store.Positions(ctx)
}

// Update 不改 position 与计数器，职位变更会破坏已有票据归属。
func (s *CandidateService) Update(ctx context.Context, id string, in CandidateInput) (*models.Candidate, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewInvalidError("name 不能为空")
	}
	c, err := s.store.CandidateById(ctx, id)
	if err != nil {
		return nil, wrapStore(err, "候选人不存在", "")
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Party = in.Party
	c.Description = in.Description
	c.ImageUrl = in.ImageUrl
	if err := s.store.UpdateCandidate(ctx, c); err != nil {
		return nil, wrapStore(err, "候选人不存在", "")
	}
	return c, nil
}

// Retire 软下架，历史票据与计数保留。
func (s *CandidateService) Retire(ctx context.Context, id string) error {
	return wrapStore(s.store.SetCandidateStatus(ctx, id, models.CandidateStatusRetired), "候选人不存在", "")
}

func (s *CandidateService) Reactivate(ctx context.Context, id string) error {
	return wrapStore(s.store.SetCandidateStatus(ctx, id, models.CandidateStatusActive), "候选人不存在", "")
}
