package services

import (
	"context"
	"sort"
	"time"

	"decisiondeck/internal/models"
	"decisiondeck/internal/store"
)

type AnalyticsStore interface {
	QueryStore
	CandidateById(ctx context.Context, id string) (*models.Candidate, error)
	ListCandidates(ctx context.Context, activeOnly bool) ([]*models.Candidate, error)
	CountActiveUsers(ctx context.Context) (int, error)
}

// RoomCounter 实时订阅数来源，realtime.Hub 实现。
type RoomCounter interface {
	RoomSizes() map[string]int
}

// AnalyticsService 管理侧看板，全部现算。
type AnalyticsService struct {
	store AnalyticsStore
	rooms RoomCounter
	now   func() time.Time
}

func NewAnalyticsService(s AnalyticsStore, rooms RoomCounter) *AnalyticsService {
	return &AnalyticsService{store: s, rooms: rooms, now: time.Now}
}

type TrendBucket struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}

type TopCandidate struct {
	CandidateId string `json:"candidateId"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	Votes       int    `json:"votes"`
}

type PositionSummary struct {
	Position     string `json:"position"`
	Votes        int    `json:"votes"`
	UniqueVoters int    `json:"uniqueVoters"`
}

type Dashboard struct {
	TimeRange      string            `json:"timeRange"`
	VotesInPeriod  int               `json:"votesInPeriod"`
	Trend          []TrendBucket     `json:"trend"`
	TopCandidates  []TopCandidate    `json:"topCandidates"`
	Positions      []PositionSummary `json:"positions"`
	ActiveUsers    int               `json:"activeUsers"`
	ConversionRate float64           `json:"conversionRate"`
}

const topCandidateLimit = 5

// Dashboard timeRange 只接受 24h/7d/30d，24h 用小时桶，其余用日桶。
func (s *AnalyticsService) Dashboard(ctx context.Context, timeRange string) (*Dashboard, error) {
	var window time.Duration
	var bucketFormat string
	switch timeRange {
	case "24h":
		window, bucketFormat = 24*time.Hour, "2006-01-02 15:00"
	case "7d":
		window, bucketFormat = 7*24*time.Hour, time.DateOnly
	case "30d":
		window, bucketFormat = 30*24*time.Hour, time.DateOnly
	default:
		return nil, NewInvalidError("timeRange 只支持 24h/7d/30d")
	}

	since := s.now().Add(-window)
	votes, err := s.store.ListVotes(ctx, store.VoteFilter{From: since, ValidOnly: true})
	if err != nil {
		return nil, err
	}

	trendMap := map[string]int{}
	byCandidate := map[string]int{}
	byPosition := map[string]int{}
	votersByPosition := map[string]map[string]struct{}{}
	for _, v := range votes {
		trendMap[v.CreatedAt.UTC().Format(bucketFormat)]++
		byCandidate[v.CandidateId]++
		byPosition[v.Position]++
		if votersByPosition[v.Position] == nil {
			votersByPosition[v.Position] = map[string]struct{}{}
		}
		votersByPosition[v.Position][v.VoterId] = struct{}{}
	}

	candidates, err := s.store.ListCandidates(ctx, false)
	if err != nil {
		return nil, err
	}
	nameOf := make(map[string]*models.Candidate, len(candidates))
	for _, c := range candidates {
		nameOf[c.Id] = c
	}

	top := make([]TopCandidate, 0, len(byCandidate))
	for id, n := range byCandidate {
		tc := TopCandidate{CandidateId: id, Votes: n}
		if c, ok := nameOf[id]; ok {
			tc.Name, tc.Position = c.Name, c.Position
		}
		top = append(top, tc)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Votes != top[j].Votes {
			return top[i].Votes > top[j].Votes
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topCandidateLimit {
		top = top[:topCandidateLimit]
	}

	positions := make([]PositionSummary, 0, len(byPosition))
	for p, n := range byPosition {
		positions = append(positions, PositionSummary{
			Position:     p,
			Votes:        n,
			UniqueVoters: len(votersByPosition[p]),
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Position < positions[j].Position })

	activeUsers, err := s.store.CountActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	conversion := 0.0
	if activeUsers > 0 {
		conversion = round2(float64(len(votes)) / float64(activeUsers))
	}

	return &Dashboard{
		TimeRange:      timeRange,
		VotesInPeriod:  len(votes),
		Trend:          sortedBuckets(trendMap),
		TopCandidates:  top,
		Positions:      positions,
		ActiveUsers:    activeUsers,
		ConversionRate: conversion,
	}, nil
}

func sortedBuckets(m map[string]int) []TrendBucket {
	out := make([]TrendBucket, 0, len(m))
	for k, v := range m {
		out = append(out, TrendBucket{Bucket: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out
}

type CandidateAnalytics struct {
	Candidate  *models.Candidate `json:"candidate"`
	TotalVotes int               `json:"totalVotes"`
	ValidVotes int               `json:"validVotes"`
	ByDevice   map[string]int    `json:"byDevice"`
	Daily      []TrendBucket     `json:"daily"`
}

func (s *AnalyticsService) CandidateAnalytics(ctx context.Context, candidateId string) (*CandidateAnalytics, error) {
	c, err := s.store.CandidateById(ctx, candidateId)
	if err != nil {
		return nil, wrapStore(err, "候选人不存在", "")
	}
	votes, err := s.store.ListVotes(ctx, store.VoteFilter{CandidateId: candidateId})
	if err != nil {
		return nil, err
	}
	out := &CandidateAnalytics{
		Candidate: c,
		ByDevice:  map[string]int{},
	}
	daily := map[string]int{}
	for _, v := range votes {
		out.TotalVotes++
		if v.Valid {
			out.ValidVotes++
		}
		out.ByDevice[string(v.Device)]++
		daily[v.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	out.Daily = sortedBuckets(daily)
	return out, nil
}

type PositionAnalytics struct {
	Position     string         `json:"position"`
	TotalVotes   int            `json:"totalVotes"`
	ValidVotes   int            `json:"validVotes"`
	UniqueVoters int            `json:"uniqueVoters"`
	ByDevice     map[string]int `json:"byDevice"`
	Daily        []TrendBucket  `json:"daily"`
}

func (s *AnalyticsService) PositionAnalytics(ctx context.Context, position string) (*PositionAnalytics, error) {
	if position == "" {
		return nil, NewInvalidError("position 不能为空")
	}
	votes, err := s.store.ListVotes(ctx, store.VoteFilter{Position: position})
	if err != nil {
		return nil, err
	}
	out := &PositionAnalytics{
		Position: position,
		ByDevice: map[string]int{},
	}
	voters := map[string]struct{}{}
	daily := map[string]int{}
	for _, v := range votes {
		out.TotalVotes++
		if v.Valid {
			out.ValidVotes++
		}
		voters[v.VoterId] = struct{}{}
		out.ByDevice[string(v.Device)]++
		daily[v.CreatedAt.UTC().Format(time.DateOnly)]++
	}
	out.UniqueVoters = len(voters)
	out.Daily = sortedBuckets(daily)
	return out, nil
}

type UserBehavior struct {
	ActiveUsers       int            `json:"activeUsers"`
	VotersWithVotes   int            `json:"votersWithVotes"`
	VotesPerVoter     map[string]int `json:"votesPerVoter"`
	ByDevice          map[string]int `json:"byDevice"`
	VotesByHourOfDay  map[string]int `json:"votesByHourOfDay"`
	ParticipationRate float64        `json:"participationRate"`
}

func (s *AnalyticsService) UserBehavior(ctx context.Context) (*UserBehavior, error) {
	votes, err := s.store.ListVotes(ctx, store.VoteFilter{ValidOnly: true})
	if err != nil {
		return nil, err
	}
	activeUsers, err := s.store.CountActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	perVoter := map[string]int{}
	out := &UserBehavior{
		ActiveUsers:      activeUsers,
		VotesPerVoter:    map[string]int{},
		ByDevice:         map[string]int{},
		VotesByHourOfDay: map[string]int{},
	}
	for _, v := range votes {
		perVoter[v.VoterId]++
		out.ByDevice[string(v.Device)]++
		out.VotesByHourOfDay[v.CreatedAt.UTC().Format("15")]++
	}
	// 投票数 -> 该投票数的用户数，外显不含个体
	for _, n := range perVoter {
		out.VotesPerVoter[bucketLabel(n)]++
	}
	out.VotersWithVotes = len(perVoter)
	if activeUsers > 0 {
		out.ParticipationRate = round2(float64(len(perVoter)) / float64(activeUsers) * 100)
	}
	return out, nil
}

func bucketLabel(n int) string {
	switch {
	case n <= 1:
		return "1"
	case n <= 3:
		return "2-3"
	case n <= 5:
		return "4-5"
	default:
		return "6+"
	}
}

type RealtimeSnapshot struct {
	VotesLast5m int            `json:"votesLast5m"`
	Subscribers map[string]int `json:"subscribers"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

func (s *AnalyticsService) Realtime(ctx context.Context) (*RealtimeSnapshot, error) {
	now := s.now()
	n, err := s.store.CountVotes(ctx, store.VoteFilter{From: now.Add(-5 * time.Minute), ValidOnly: true})
	if err != nil {
		return nil, err
	}
	subs := map[string]int{}
	if s.rooms != nil {
		subs = s.rooms.RoomSizes()
	}
	return &RealtimeSnapshot{VotesLast5m: n, Subscribers: subs, GeneratedAt: now}, nil
}
