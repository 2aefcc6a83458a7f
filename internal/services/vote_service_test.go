package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisiondeck/internal/models"
	"decisiondeck/internal/store"
)

type capturedEvent struct {
	Room  string
	Event string
	Data  any
}

type stubPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *stubPublisher) Publish(room, event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Room: room, Event: event, Data: data})
}

func (p *stubPublisher) all() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedEvent(nil), p.events...)
}

func seedVoter(t *testing.T, m *store.Memory) *models.User {
	t.Helper()
	u := &models.User{
		Id:        uuid.NewString(),
		Handle:    "voter-" + uuid.NewString()[:8],
		Email:     uuid.NewString()[:8] + "@test.local",
		Role:      models.RoleVoter,
		Status:    models.UserStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, m.CreateUser(context.Background(), u))
	return u
}

func seedCandidate(t *testing.T, m *store.Memory, name, position string) *models.Candidate {
	t.Helper()
	c := &models.Candidate{
		Id:        uuid.NewString(),
		Name:      name,
		Position:  position,
		Status:    models.CandidateStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, m.CreateCandidate(context.Background(), c))
	return c
}

func TestCast_Success(t *testing.T) {
	m := store.NewMemory()
	pub := &stubPublisher{}
	svc := NewVoteService(m, pub)
	ctx := context.Background()

	voter := seedVoter(t, m)
	cand := seedCandidate(t, m, "X", "President")

	res, err := svc.Cast(ctx, voter.Id, cand.Id, "President", VoteMeta{Device: models.DeviceDesktop})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCount)
	assert.True(t, res.Vote.Valid)
	assert.Equal(t, "President", res.Vote.Position)

	got, err := m.CandidateById(ctx, cand.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.VoteCount)

	u, err := m.UserById(ctx, voter.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, u.VotesCast)
	assert.Equal(t, 1, u.PositionsVoted)

	// 职位频道 + 全局分析频道各一条
	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, "vote:President", events[0].Room)
	assert.Equal(t, "analytics", events[1].Room)
}

func TestCast_CandidateNotFound(t *testing.T) {
	m := store.NewMemory()
	svc := NewVoteService(m, nil)
	voter := seedVoter(t, m)

	_, err := svc.Cast(context.Background(), voter.Id, uuid.NewString(), "President", VoteMeta{})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, se.Code)
}

func TestCast_CandidateInactive(t *testing.T) {
	m := store.NewMemory()
	svc := NewVoteService(m, nil)
	ctx := context.Background()
	voter := seedVoter(t, m)
	cand := seedCandidate(t, m, "X", "President")
	require.NoError(t, m.SetCandidateStatus(ctx, cand.Id, models.CandidateStatusRetired))

	_, err := svc.Cast(ctx, voter.Id, cand.Id, "President", VoteMeta{})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorInvalid, se.Code)
}

func TestCast_PositionMismatch(t *testing.T) {
	m := store.NewMemory()
	svc := NewVoteService(m, nil)
	voter := seedVoter(t, m)
	cand := seedCandidate(t, m, "X", "President")

	_, err := svc.Cast(context.Background(), voter.Id, cand.Id, "Treasurer", VoteMeta{})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorInvalid, se.Code)
}

func TestCast_DuplicateVote(t *testing.T) {
	m := store.NewMemory()
	svc := NewVoteService(m, nil)
	ctx := context.Background()
	voter := seedVoter(t, m)
	x := seedCandidate(t, m, "X", "President")
	y := seedCandidate(t, m, "Y", "President")

	_, err := svc.Cast(ctx, voter.Id, x.Id, "President", VoteMeta{})
	require.NoError(t, err)

	// 换候选人也不行，名额按 (voter, position) 占用
	_, err = svc.Cast(ctx, voter.Id, y.Id, "President", VoteMeta{})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorConflict, se.Code)

	got, err := m.CandidateById(ctx, y.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, got.VoteCount)
}

// 并发提交同一 (voter, position)：恰好一个成功，其余冲突。
func TestCast_ConcurrentExactlyOneWins(t *testing.T) {
	m := store.NewMemory()
	svc := NewVoteService(m, &stubPublisher{})
	ctx := context.Background()
	voter := seedVoter(t, m)
	cand := seedCandidate(t, m, "X", "President")

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Cast(ctx, voter.Id, cand.Id, "President", VoteMeta{})
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		se, ok := AsServiceError(err)
		require.True(t, ok)
		assert.Equal(t, ErrorConflict, se.Code)
		conflicts++
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)

	// 计数器最终与有效票数一致
	got, err := m.CandidateById(ctx, cand.Id)
	require.NoError(t, err)
	valid, err := m.CountVotes(ctx, store.VoteFilter{CandidateId: cand.Id, ValidOnly: true})
	require.NoError(t, err)
	assert.Equal(t, valid, got.VoteCount)
}

func TestInvalidate_ReversesCounter(t *testing.T) {
	m := store.NewMemory()
	pub := &stubPublisher{}
	svc := NewVoteService(m, pub)
	ctx := context.Background()
	voter := seedVoter(t, m)
	cand := seedCandidate(t, m, "X", "President")

	res, err := svc.Cast(ctx, voter.Id, cand.Id, "President", VoteMeta{})
	require.NoError(t, err)

	out, err := svc.Invalidate(ctx, res.Vote.Id)
	require.NoError(t, err)
	assert.False(t, out.Valid)
	require.NotNil(t, out.InvalidatedAt)

	got, err := m.CandidateById(ctx, cand.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, got.VoteCount)

	// 记录保留且可回查
	kept, err := m.VoteById(ctx, res.Vote.Id)
	require.NoError(t, err)
	assert.False(t, kept.Valid)

	// 名额不释放，不能补投
	_, err = svc.Cast(ctx, voter.Id, cand.Id, "President", VoteMeta{})
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorConflict, se.Code)
}

func TestInvalidate_TwiceConflicts(t *testing.T) {
	m := store.NewMemory()
	svc := NewVoteService(m, nil)
	ctx := context.Background()
	voter := seedVoter(t, m)
	cand := seedCandidate(t, m, "X", "President")

	res, err := svc.Cast(ctx, voter.Id, cand.Id, "President", VoteMeta{})
	require.NoError(t, err)

	_, err = svc.Invalidate(ctx, res.Vote.Id)
	require.NoError(t, err)
	_, err = svc.Invalidate(ctx, res.Vote.Id)
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorConflict, se.Code)

	// 计数只回退一次，下限为零
	got, err := m.CandidateById(ctx, cand.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, got.VoteCount)
}

func TestInvalidate_NotFound(t *testing.T) {
	m := store.NewMemory()
	svc := NewVoteService(m, nil)

	_, err := svc.Invalidate(context.Background(), uuid.NewString())
	se, ok := AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorNotFound, se.Code)
}
