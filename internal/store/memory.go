package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"decisiondeck/internal/models"
)

// Memory 全内存实现，测试与本地运行使用。
// 与 Postgres 保持同样的唯一性裁决与排序语义。
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	candidates map[string]*models.Candidate
	votes      map[string]*models.Vote
	// voteSlots (voter_id|position) -> vote_id，唯一约束
	voteSlots map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		users:      map[string]*models.User{},
		candidates: map[string]*models.Candidate{},
		votes:      map[string]*models.Vote{},
		voteSlots:  map[string]string{},
	}
}

func slotKey(voterId, position string) string { return voterId + "|" + position }

// --- users ---

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.users {
		if ex.Handle == u.Handle || ex.Email == u.Email {
			return ErrDuplicate
		}
	}
	cp := *u
	m.users[u.Id] = &cp
	return nil
}

func (m *Memory) UserById(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context, limit, offset int) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (m *Memory) UpdateUserRole(_ context.Context, id string, role models.UserRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) UpdateUserStatus(_ context.Context, id string, status models.UserStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) BumpVoterCounters(_ context.Context, voterId string, newPosition bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[voterId]
	if !ok {
		return ErrNotFound
	}
	u.VotesCast++
	if newPosition {
		u.PositionsVoted++
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) CountActiveUsers(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, u := range m.users {
		if u.Status == models.UserStatusActive {
			n++
		}
	}
	return n, nil
}

// --- candidates ---

func (m *Memory) CreateCandidate(_ context.Context, c *models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.candidates[c.Id] = &cp
	return nil
}

func (m *Memory) CandidateById(_ context.Context, id string) (*models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) CandidatesByPosition(_ context.Context, position string, activeOnly bool) ([]*models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Candidate{}
	for _, c := range m.candidates {
		if c.Position != position {
			continue
		}
		if activeOnly && !c.Active() {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sortCandidates(out)
	return out, nil
}

func (m *Memory) ListCandidates(_ context.Context, activeOnly bool) ([]*models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Candidate{}
	for _, c := range m.candidates {
		if activeOnly && !c.Active() {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		if out[i].VoteCount != out[j].VoteCount {
			return out[i].VoteCount > out[j].VoteCount
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func sortCandidates(cs []*models.Candidate) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].VoteCount != cs[j].VoteCount {
			return cs[i].VoteCount > cs[j].VoteCount
		}
		return cs[i].Name < cs[j].Name
	})
}

func (m *Memory) UpdateCandidate(_ context.Context, c *models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.candidates[c.Id]
	if !ok {
		return ErrNotFound
	}
	ex.Name = c.Name
	ex.Party = c.Party
	ex.Description = c.Description
	ex.ImageUrl = c.ImageUrl
	ex.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) SetCandidateStatus(_ context.Context, id string, status models.CandidateStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) Positions(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, c := range m.candidates {
		if _, ok := seen[c.Position]; ok {
			continue
		}
		seen[c.Position] = struct{}{}
		out = append(out, c.Position)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) IncrementVoteCount(_ context.Context, candidateId string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[candidateId]
	if !ok {
		return 0, ErrNotFound
	}
	c.VoteCount++
	c.UpdatedAt = time.Now()
	return c.VoteCount, nil
}

func (m *Memory) DecrementVoteCount(_ context.Context, candidateId string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[candidateId]
	if !ok {
		return 0, ErrNotFound
	}
	if c.VoteCount > 0 {
		c.VoteCount--
	}
	c.UpdatedAt = time.Now()
	return c.VoteCount, nil
}

// --- votes ---

func (m *Memory) InsertVote(_ context.Context, v *models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := slotKey(v.VoterId, v.Position)
	if _, taken := m.voteSlots[key]; taken {
		return ErrDuplicate
	}
	cp := *v
	m.votes[v.Id] = &cp
	m.voteSlots[key] = v.Id
	return nil
}

func (m *Memory) VoteById(_ context.Context, id string) (*models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.votes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *Memory) MarkVoteInvalid(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[id]
	if !ok {
		return ErrNotFound
	}
	if !v.Valid {
		return ErrConflict
	}
	v.Valid = false
	v.InvalidatedAt = &at
	return nil
}

func (m *Memory) ListVotes(_ context.Context, f VoteFilter) ([]*models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Vote{}
	for _, v := range m.votes {
		if !matchVote(v, f) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].Id, out[j].Id) < 0
	})
	return page(out, f.Limit, f.Offset), nil
}

func (m *Memory) CountVotes(_ context.Context, f VoteFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, v := range m.votes {
		if matchVote(v, f) {
			n++
		}
	}
	return n, nil
}

func matchVote(v *models.Vote, f VoteFilter) bool {
	if f.VoterId != "" && v.VoterId != f.VoterId {
		return false
	}
	if f.CandidateId != "" && v.CandidateId != f.CandidateId {
		return false
	}
	if f.Position != "" && v.Position != f.Position {
		return false
	}
	if f.ValidOnly && !v.Valid {
		return false
	}
	if !f.From.IsZero() && v.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !v.CreatedAt.Before(f.To) {
		return false
	}
	return true
}

func page[T any](in []T, limit, offset int) []T {
	if limit <= 0 {
		return in
	}
	if offset >= len(in) {
		return []T{}
	}
	end := offset + limit
	if end > len(in) {
		end = len(in)
	}
	return in[offset:end]
}
