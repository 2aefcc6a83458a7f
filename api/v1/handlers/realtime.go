package handlers

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"decisiondeck/internal/realtime"
	"decisiondeck/internal/services"
)

type RealtimeHandle struct {
	hub *realtime.Hub
}

func RegisterRealtime(app *fiber.App, hub *realtime.Hub, auth *services.AuthService) {
	handler := RealtimeHandle{hub: hub}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", RequireAuth(auth), websocket.New(handler.Serve))
}

type clientMessage struct {
	Event    string `json:"event"`
	Position string `json:"position"`
}

// Serve 一条连接一个订阅者：读循环处理进出房间，写循环搬运广播。
// 断线即注销，客户端重连后需重新进房并拉一次快照。
func (h *RealtimeHandle) Serve(conn *websocket.Conn) {
	sub := h.hub.Subscribe(32)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range sub.C() {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("忽略无法解析的客户端消息")
			continue
		}
		switch msg.Event {
		case "join-vote-room":
			if msg.Position != "" {
				h.hub.Join(sub, realtime.RoomForPosition(msg.Position))
			}
		case "leave-vote-room":
			if msg.Position != "" {
				h.hub.Leave(sub, realtime.RoomForPosition(msg.Position))
			}
		case "join-analytics-room":
			h.hub.Join(sub, realtime.AnalyticsRoom)
		case "leave-analytics-room":
			h.hub.Leave(sub, realtime.AnalyticsRoom)
		}
	}

	h.hub.Unsubscribe(sub)
	<-done
	_ = conn.Close()
}
