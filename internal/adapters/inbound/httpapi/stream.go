package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/detectiq/workbench/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// handleNotificationStream pushes notification lifecycle events to the
// frontend. Server to client only; the read side just services pong frames
// and notices the peer going away.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.WithError(err).Debug("websocket upgrade rejected")
		return
	}

	replay, events, cancel := s.center.SubscribeWithReplay()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
		<-done
	}()

	s.log.WithField("remote", r.RemoteAddr).Debug("notification stream opened")

	// Replay the open notifications so a fresh client starts in sync.
	for _, n := range replay {
		if err := writeEvent(conn, domain.NotificationEvent{Type: domain.EventOpened, Notification: n}); err != nil {
			return
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev domain.NotificationEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
