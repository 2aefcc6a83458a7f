package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisiondeck/internal/models"
	"decisiondeck/internal/store"
)

type stubRooms struct {
	sizes map[string]int
}

func (s *stubRooms) RoomSizes() map[string]int { return s.sizes }

func TestDashboard(t *testing.T) {
	m := newMemoryFixture(t)
	svc := NewAnalyticsService(m.store, &stubRooms{sizes: map[string]int{"vote:President": 3}})

	out, err := svc.Dashboard(context.Background(), "24h")
	require.NoError(t, err)
	assert.Equal(t, "24h", out.TimeRange)
	assert.Equal(t, 3, out.VotesInPeriod)
	assert.NotEmpty(t, out.Trend)
	require.NotEmpty(t, out.TopCandidates)
	assert.Equal(t, "X", out.TopCandidates[0].Name)
	assert.Equal(t, 2, out.TopCandidates[0].Votes)

	require.Len(t, out.Positions, 2)
	assert.Equal(t, 3, out.ActiveUsers)
	// 3 票 / 3 活跃用户
	assert.InDelta(t, 1.0, out.ConversionRate, 0.01)
}

func TestDashboard_RejectsUnknownRange(t *testing.T) {
	m := newMemoryFixture(t)
	svc := NewAnalyticsService(m.store, nil)

	_, err := svc.Dashboard(context.Background(), "90d")
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorInvalid, se.Code)
}

func TestCandidateAnalytics(t *testing.T) {
	m := newMemoryFixture(t)
	svc := NewAnalyticsService(m.store, nil)

	out, err := svc.CandidateAnalytics(context.Background(), m.x.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, out.TotalVotes)
	assert.Equal(t, 2, out.ValidVotes)
	assert.NotEmpty(t, out.Daily)
}

func TestPositionAnalytics(t *testing.T) {
	m := newMemoryFixture(t)
	svc := NewAnalyticsService(m.store, nil)

	out, err := svc.PositionAnalytics(context.Background(), "President")
	require.NoError(t, err)
	assert.Equal(t, 2, out.TotalVotes)
	assert.Equal(t, 2, out.UniqueVoters)
}

func TestUserBehavior(t *testing.T) {
	m := newMemoryFixture(t)
	svc := NewAnalyticsService(m.store, nil)

	out, err := svc.UserBehavior(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, out.ActiveUsers)
	assert.Equal(t, 3, out.VotersWithVotes)
	assert.InDelta(t, 100.0, out.ParticipationRate, 0.01)
}

func TestRealtimeSnapshot(t *testing.T) {
	m := newMemoryFixture(t)
	svc := NewAnalyticsService(m.store, &stubRooms{sizes: map[string]int{"analytics": 1}})
	svc.now = func() time.Time { return time.Now() }

	out, err := svc.Realtime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, out.VotesLast5m)
	assert.Equal(t, 1, out.Subscribers["analytics"])
}

type fixture struct {
	store *store.Memory
	x     *models.Candidate
}

// 固定场景：X 得 2 票（President），Z 得 1 票（Treasurer），共 3 个活跃用户。
func newMemoryFixture(t *testing.T) *fixture {
	t.Helper()
	m := store.NewMemory()
	ledger := NewVoteService(m, nil)
	ctx := context.Background()

	x := seedCandidate(t, m, "X", "President")
	seedCandidate(t, m, "Y", "President")
	z := seedCandidate(t, m, "Z", "Treasurer")

	v1 := seedVoter(t, m)
	v2 := seedVoter(t, m)
	_, err := ledger.Cast(ctx, v1.Id, x.Id, "President", VoteMeta{})
	require.NoError(t, err)
	_, err = ledger.Cast(ctx, v2.Id, x.Id, "President", VoteMeta{})
	require.NoError(t, err)

	v3 := seedVoter(t, m)
	_, err = ledger.Cast(ctx, v3.Id, z.Id, "Treasurer", VoteMeta{})
	require.NoError(t, err)

	return &fixture{store: m, x: x}
}
