package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/y2kparty/console-backend/internal/hub"
	"github.com/y2kparty/console-backend/internal/types"
)

const writeTimeout = 3 * time.Second

// Handler upgrades a connection, registers it with the hub under a fresh
// session id, and pumps frames both ways until the client goes away.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// Phones join over the LAN by IP, so the Origin header never
			// matches the host. Auth is the join code, not the origin.
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		sessionID := uuid.NewString()
		client := h.Register(sessionID)
		defer h.Unregister(sessionID)

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case frame := <-client.Send():
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := conn.Write(ctx, websocket.MessageText, frame)
					cancel()
					if err != nil {
						return
					}
				}
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"event":"error","data":{"code":"BAD_JSON","message":"Malformed frame"}}`))
				continue
			}
			if cm.Event == "" {
				continue
			}

			h.HandleMessage(sessionID, cm)
		}
	}
}
