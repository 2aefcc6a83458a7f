package services

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"decisiondeck/internal/models"
	"decisiondeck/internal/realtime"
	"decisiondeck/internal/store"
)

type LedgerStore interface {
	CandidateById(ctx context.Context, id string) (*models.Candidate, error)
	InsertVote(ctx context.Context, v *models.Vote) error
	VoteById(ctx context.Context, id string) (*models.Vote, error)
	MarkVoteInvalid(ctx context.Context, id string, at time.Time) error
	IncrementVoteCount(ctx context.Context, candidateId string) (int, error)
	DecrementVoteCount(ctx context.Context, candidateId string) (int, error)
	BumpVoterCounters(ctx context.Context, voterId string, newPosition bool) error
}

// Publisher 写后广播出口，realtime.Hub 实现。
type Publisher interface {
	Publish(room, event string, data any)
}

// VoteService 投票账本：唯一性由存储层唯一约束裁决，
// 计数器更新是独立的显式步骤，与插入不在一个事务里。
type VoteService struct {
	store LedgerStore
	pub   Publisher
	now   func() time.Time
}

func NewVoteService(s LedgerStore, pub Publisher) *VoteService {
	return &VoteService{store: s, pub: pub, now: time.Now}
}

// VoteMeta 提交现场信息，进票面留底。
type VoteMeta struct {
	Ip     *netip.Addr
	IpHash string
	Device models.DeviceClass
}

type CastResult struct {
	Vote     *models.Vote `json:"vote"`
	NewCount int          `json:"new_count"`
}

func (s *VoteService) Cast(ctx context.Context, voterId, candidateId, position string, meta VoteMeta) (*CastResult, error) {
	position = strings.TrimSpace(position)
	if candidateId == "" || position == "" {
		return nil, NewInvalidError("candidateId 与 position 不能为空")
	}

	c, err := s.store.CandidateById(ctx, candidateId)
	if err != nil {
		return nil, wrapStore(err, "候选人不存在", "")
	}
	if !c.Active() {
		return nil, NewInvalidError("候选人已下架")
	}
	// 防客户端送错职位
	if c.Position != position {
		return nil, NewInvalidError("position 与候选人不匹配")
	}

	device := meta.Device
	if device == "" {
		device = models.DeviceUnknown
	}
	v := &models.Vote{
		Id:          uuid.NewString(),
		VoterId:     voterId,
		CandidateId: candidateId,
		Position:    position,
		Ip:          meta.Ip,
		IpHash:      meta.IpHash,
		Device:      device,
		Valid:       true,
		CreatedAt:   s.now(),
	}
	// 并发时同一 (voter, position) 只有一条能插入成功
	if err := s.store.InsertVote(ctx, v); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, NewConflictError("该职位已投过票")
		}
		return nil, err
	}

	newCount, err := s.store.IncrementVoteCount(ctx, candidateId)
	if err != nil {
		// 票已落库，计数靠对账补齐
		log.Error().Err(err).Str("vote_id", v.Id).Msg("计数器更新失败")
		return nil, err
	}
	// 每职位一票，成功即覆盖新职位
	if err := s.store.BumpVoterCounters(ctx, voterId, true); err != nil {
		log.Warn().Err(err).Str("voter_id", voterId).Msg("用户计数更新失败")
	}

	s.broadcast(position, candidateId, newCount)
	return &CastResult{Vote: v, NewCount: newCount}, nil
}

// Invalidate 管理员作废：票面保留，计数回退（下限零），名额不释放。
func (s *VoteService) Invalidate(ctx context.Context, voteId string) (*models.Vote, error) {
	v, err := s.store.VoteById(ctx, voteId)
	if err != nil {
		return nil, wrapStore(err, "票据不存在", "")
	}
	if err := s.store.MarkVoteInvalid(ctx, voteId, s.now()); err != nil {
		return nil, wrapStore(err, "票据不存在", "票据已作废")
	}
	newCount, err := s.store.DecrementVoteCount(ctx, v.CandidateId)
	if err != nil {
		log.Error().Err(err).Str("vote_id", voteId).Msg("计数器回退失败")
		return nil, err
	}

	s.broadcast(v.Position, v.CandidateId, newCount)

	out, err := s.store.VoteById(ctx, voteId)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// broadcast 失败不影响写入结果，掉线客户端靠快照补齐。
func (s *VoteService) broadcast(position, candidateId string, newCount int) {
	if s.pub == nil {
		return
	}
	update := realtime.VoteUpdate{
		Position:    position,
		CandidateId: candidateId,
		VoteCount:   newCount,
	}
	s.pub.Publish(realtime.RoomForPosition(position), realtime.EventVoteUpdated, update)
	s.pub.Publish(realtime.AnalyticsRoom, realtime.EventAnalyticsUpdated, update)
}
