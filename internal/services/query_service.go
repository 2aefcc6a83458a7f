package services

import (
	"context"
	"math"
	"time"

	"decisiondeck/internal/models"
	"decisiondeck/internal/store"
)

type QueryStore interface {
	CandidatesByPosition(ctx context.Context, position string, activeOnly bool) ([]*models.Candidate, error)
	ListVotes(ctx context.Context, f store.VoteFilter) ([]*models.Vote, error)
	CountVotes(ctx context.Context, f store.VoteFilter) (int, error)
	Positions(ctx context.Context) ([]string, error)
}

// QueryService 只读聚合，每次请求从原始票据现算，不做缓存。
type QueryService struct {
	store QueryStore
}

func NewQueryService(s QueryStore) *QueryService {
	return &QueryService{store: s}
}

type PositionResult struct {
	CandidateId string  `json:"candidateId"`
	Name        string  `json:"name"`
	VoteCount   int     `json:"voteCount"`
	Percentage  float64 `json:"percentage"`
}

type PositionResults struct {
	Position        string           `json:"position"`
	Results         []PositionResult `json:"results"`
	TotalVotes      int              `json:"totalVotes"`
	TotalCandidates int              `json:"totalCandidates"`
}

// ResultsForPosition 按冗余计数器出榜，总票为零时各占比为零。
// 排序固定为票数降序、名字升序，保证无写入时重复查询结果一致。
func (s *QueryService) ResultsForPosition(ctx context.Context, position string) (*PositionResults, error) {
	if position == "" {
		return nil, NewInvalidError("position 不能为空")
	}
	candidates, err := s.store.CandidatesByPosition(ctx, position, true)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range candidates {
		total += c.VoteCount
	}
	results := make([]PositionResult, 0, len(candidates))
	for _, c := range candidates {
		pct := 0.0
		if total > 0 {
			pct = round2(float64(c.VoteCount) / float64(total) * 100)
		}
		results = append(results, PositionResult{
			CandidateId: c.Id,
			Name:        c.Name,
			VoteCount:   c.VoteCount,
			Percentage:  pct,
		})
	}
	return &PositionResults{
		Position:        position,
		Results:         results,
		TotalVotes:      total,
		TotalCandidates: len(candidates),
	}, nil
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

type VoteHistoryPage struct {
	Votes      []*models.Vote `json:"votes"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
}

func (s *QueryService) VoterHistory(ctx context.Context, voterId string, page, pageSize int) (*VoteHistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	f := store.VoteFilter{VoterId: voterId}
	total, err := s.store.CountVotes(ctx, f)
	if err != nil {
		return nil, err
	}
	f.Limit = pageSize
	f.Offset = (page - 1) * pageSize
	votes, err := s.store.ListVotes(ctx, f)
	if err != nil {
		return nil, err
	}
	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &VoteHistoryPage{
		Votes:      votes,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

type VoteStats struct {
	TotalVotes     int            `json:"totalVotes"`
	ValidVotes     int            `json:"validVotes"`
	PositionsVoted int            `json:"positionsVoted"`
	PerPosition    map[string]int `json:"perPosition"`
	PerDay         map[string]int `json:"perDay"`
}

// OverviewStats 全量统计，无时间窗口。
func (s *QueryService) OverviewStats(ctx context.Context) (*VoteStats, error) {
	return s.aggregate(ctx, time.Time{}, time.Time{})
}

// AdminStats 可带时间窗口的统计，窗口端点零值表示不限。
func (s *QueryService) AdminStats(ctx context.Context, from, to time.Time) (*VoteStats, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, NewInvalidError("endDate 早于 startDate")
	}
	return s.aggregate(ctx, from, to)
}

func (s *QueryService) aggregate(ctx context.Context, from, to time.Time) (*VoteStats, error) {
	votes, err := s.store.ListVotes(ctx, store.VoteFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	stats := &VoteStats{
		PerPosition: map[string]int{},
		PerDay:      map[string]int{},
	}
	for _, v := range votes {
		stats.TotalVotes++
		if v.Valid {
			stats.ValidVotes++
		}
		stats.PerPosition[v.Position]++
		stats.PerDay[v.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	stats.PositionsVoted = len(stats.PerPosition)
	return stats, nil
}
