package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisiondeck/internal/models"
)

func newVote(voterId, candidateId, position string) *models.Vote {
	return &models.Vote{
		Id:          uuid.NewString(),
		VoterId:     voterId,
		CandidateId: candidateId,
		Position:    position,
		Device:      models.DeviceUnknown,
		Valid:       true,
		CreatedAt:   time.Now(),
	}
}

func TestInsertVote_UniquePerVoterPosition(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.InsertVote(ctx, newVote("v1", "c1", "President")))
	assert.ErrorIs(t, m.InsertVote(ctx, newVote("v1", "c2", "President")), ErrDuplicate)

	// 其他职位、其他投票人不受影响
	require.NoError(t, m.InsertVote(ctx, newVote("v1", "c3", "Treasurer")))
	require.NoError(t, m.InsertVote(ctx, newVote("v2", "c1", "President")))
}

func TestInsertVote_ConcurrentSingleWinner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.InsertVote(ctx, newVote("v1", "c1", "President"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrDuplicate)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestVoteCounterFloor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	c := &models.Candidate{Id: "c1", Name: "X", Position: "President"}
	require.NoError(t, m.CreateCandidate(ctx, c))

	n, err := m.IncrementVoteCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.DecrementVoteCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// 不跌破零
	n, err = m.DecrementVoteCount(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = m.IncrementVoteCount(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkVoteInvalid(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	v := newVote("v1", "c1", "President")
	require.NoError(t, m.InsertVote(ctx, v))

	require.NoError(t, m.MarkVoteInvalid(ctx, v.Id, time.Now()))

	got, err := m.VoteById(ctx, v.Id)
	require.NoError(t, err)
	assert.False(t, got.Valid)
	assert.NotNil(t, got.InvalidatedAt)

	assert.ErrorIs(t, m.MarkVoteInvalid(ctx, v.Id, time.Now()), ErrConflict)
	assert.ErrorIs(t, m.MarkVoteInvalid(ctx, "missing", time.Now()), ErrNotFound)
}

func TestListVotes_FilterAndOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		v := newVote("v1", "c1", "President")
		v.Position = "P" + string(rune('1'+i))
		v.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, m.InsertVote(ctx, v))
	}
	invalid := newVote("v2", "c1", "P1")
	invalid.Valid = false
	require.NoError(t, m.InsertVote(ctx, invalid))

	all, err := m.ListVotes(ctx, VoteFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	// 新的在前
	assert.False(t, all[0].CreatedAt.Before(all[1].CreatedAt))

	valid, err := m.ListVotes(ctx, VoteFilter{ValidOnly: true})
	require.NoError(t, err)
	assert.Len(t, valid, 3)

	windowed, err := m.CountVotes(ctx, VoteFilter{From: base.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, 1, windowed)

	paged, err := m.ListVotes(ctx, VoteFilter{VoterId: "v1", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}

func TestUserUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &models.User{Id: "u1", Handle: "alice", Email: "alice@test.local"}
	require.NoError(t, m.CreateUser(ctx, u))

	dupEmail := &models.User{Id: "u2", Handle: "bob", Email: "alice@test.local"}
	assert.ErrorIs(t, m.CreateUser(ctx, dupEmail), ErrDuplicate)

	dupHandle := &models.User{Id: "u3", Handle: "alice", Email: "bob@test.local"}
	assert.ErrorIs(t, m.CreateUser(ctx, dupHandle), ErrDuplicate)
}

func TestPositions(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.CreateCandidate(ctx, &models.Candidate{Id: "c1", Name: "X", Position: "President"}))
	require.NoError(t, m.CreateCandidate(ctx, &models.Candidate{Id: "c2", Name: "Y", Position: "President"}))
	require.NoError(t, m.CreateCandidate(ctx, &models.Candidate{Id: "c3", Name: "Z", Position: "Treasurer"}))

	out, err := m.Positions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"President", "Treasurer"}, out)
}
