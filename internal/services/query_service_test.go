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

func TestResultsForPosition_PercentageLaw(t *testing.T) {
	m := store.NewMemory()
	ledger := NewVoteService(m, nil)
	query := NewQueryService(m)
	ctx := context.Background()

	x := seedCandidate(t, m, "X", "President")
	y := seedCandidate(t, m, "Y", "President")
	seedCandidate(t, m, "Z", "Treasurer")

	for i := 0; i < 3; i++ {
		v := seedVoter(t, m)
		_, err := ledger.Cast(ctx, v.Id, x.Id, "President", VoteMeta{})
		require.NoError(t, err)
	}
	v := seedVoter(t, m)
	_, err := ledger.Cast(ctx, v.Id, y.Id, "President", VoteMeta{})
	require.NoError(t, err)

	out, err := query.ResultsForPosition(ctx, "President")
	require.NoError(t, err)
	assert.Equal(t, 4, out.TotalVotes)
	assert.Equal(t, 2, out.TotalCandidates)

	// 票数降序
	require.Len(t, out.Results, 2)
	assert.Equal(t, "X", out.Results[0].Name)
	assert.Equal(t, 3, out.Results[0].VoteCount)
	assert.InDelta(t, 75.0, out.Results[0].Percentage, 0.01)

	sum := 0.0
	for _, r := range out.Results {
		sum += r.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.1)
}

func TestResultsForPosition_ZeroVotes(t *testing.T) {
	m := store.NewMemory()
	query := NewQueryService(m)
	ctx := context.Background()

	seedCandidate(t, m, "X", "President")
	seedCandidate(t, m, "Y", "President")

	out, err := query.ResultsForPosition(ctx, "President")
	require.NoError(t, err)
	assert.Equal(t, 0, out.TotalVotes)
	for _, r := range out.Results {
		assert.Zero(t, r.Percentage)
	}
}

func TestResultsForPosition_IdempotentRequery(t *testing.T) {
	m := store.NewMemory()
	ledger := NewVoteService(m, nil)
	query := NewQueryService(m)
	ctx := context.Background()

	x := seedCandidate(t, m, "X", "President")
	v := seedVoter(t, m)
	_, err := ledger.Cast(ctx, v.Id, x.Id, "President", VoteMeta{})
	require.NoError(t, err)

	first, err := query.ResultsForPosition(ctx, "President")
	require.NoError(t, err)
	second, err := query.ResultsForPosition(ctx, "President")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResultsForPosition_ExcludesRetired(t *testing.T) {
	m := store.NewMemory()
	ledger := NewVoteService(m, nil)
	query := NewQueryService(m)
	ctx := context.Background()

	x := seedCandidate(t, m, "X", "President")
	y := seedCandidate(t, m, "Y", "President")
	v := seedVoter(t, m)
	_, err := ledger.Cast(ctx, v.Id, y.Id, "President", VoteMeta{})
	require.NoError(t, err)
	require.NoError(t, m.SetCandidateStatus(ctx, y.Id, models.CandidateStatusRetired))

	out, err := query.ResultsForPosition(ctx, "President")
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, x.Id, out.Results[0].CandidateId)
	assert.Equal(t, 0, out.TotalVotes)
}

func TestVoterHistory_Paging(t *testing.T) {
	m := store.NewMemory()
	ledger := NewVoteService(m, nil)
	query := NewQueryService(m)
	ctx := context.Background()

	voter := seedVoter(t, m)
	positions := []string{"P1", "P2", "P3", "P4", "P5"}
	for _, p := range positions {
		c := seedCandidate(t, m, "C-"+p, p)
		_, err := ledger.Cast(ctx, voter.Id, c.Id, p, VoteMeta{})
		require.NoError(t, err)
	}

	page1, err := query.VoterHistory(ctx, voter.Id, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page1.Total)
	assert.Equal(t, 3, page1.TotalPages)
	assert.Len(t, page1.Votes, 2)

	page3, err := query.VoterHistory(ctx, voter.Id, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page3.Votes, 1)

	// 他人票不可见
	other := seedVoter(t, m)
	empty, err := query.VoterHistory(ctx, other.Id, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
}

func TestAdminStats_Window(t *testing.T) {
	m := store.NewMemory()
	ledger := NewVoteService(m, nil)
	query := NewQueryService(m)
	ctx := context.Background()

	old := time.Now().Add(-72 * time.Hour)
	ledger.now = func() time.Time { return old }
	c1 := seedCandidate(t, m, "X", "President")
	v1 := seedVoter(t, m)
	_, err := ledger.Cast(ctx, v1.Id, c1.Id, "President", VoteMeta{})
	require.NoError(t, err)

	ledger.now = time.Now
	c2 := seedCandidate(t, m, "Y", "Treasurer")
	v2 := seedVoter(t, m)
	_, err = ledger.Cast(ctx, v2.Id, c2.Id, "Treasurer", VoteMeta{})
	require.NoError(t, err)

	all, err := query.OverviewStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalVotes)
	assert.Equal(t, 2, all.PositionsVoted)

	recent, err := query.AdminStats(ctx, time.Now().Add(-24*time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, recent.TotalVotes)
	assert.Equal(t, 1, recent.PerPosition["Treasurer"])

	_, err = query.AdminStats(ctx, time.Now(), time.Now().Add(-time.Hour))
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorInvalid, se.Code)
}
