package realtime

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const (
	EventVoteUpdated      = "vote-updated"
	EventAnalyticsUpdated = "analytics-updated"

	// AnalyticsRoom 全局分析频道
	AnalyticsRoom = "analytics"
)

// RoomForPosition 职位对应的投票频道名
func RoomForPosition(position string) string { return "vote:" + position }

type VoteUpdate struct {
	Position    string `json:"position"`
	CandidateId string `json:"candidateId"`
	VoteCount   int    `json:"voteCount"`
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Subscriber 一条客户端连接的投递队列。
// 队列满即丢弃该条消息，至多一次投递。
type Subscriber struct {
	send chan []byte
}

func (s *Subscriber) C() <-chan []byte { return s.send }

// Hub 进程内订阅表，按频道广播，不持久化，重启即清空。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: map[string]map[*Subscriber]struct{}{}}
}

func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	return &Subscriber{send: make(chan []byte, buffer)}
}

// Unsubscribe 退出全部频道并关闭队列，连接断开时调用一次。
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	for room, subs := range h.rooms {
		if _, ok := subs[s]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.mu.Unlock()
	close(s.send)
}

func (h *Hub) Join(s *Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[room]
	if !ok {
		subs = map[*Subscriber]struct{}{}
		h.rooms[room] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) Leave(s *Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.rooms, room)
	}
}

// Publish 向频道广播一条事件，尽力而为。
func (h *Hub) Publish(room, event string, data any) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("fan-out 序列化失败")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[room] {
		select {
		case s.send <- payload:
		default:
			// 慢客户端丢弃本条，靠重新拉快照补齐
		}
	}
}

// RoomSizes 各频道当前订阅数快照
func (h *Hub) RoomSizes() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.rooms))
	for room, subs := range h.rooms {
		out[room] = len(subs)
	}
	return out
}
