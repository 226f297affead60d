package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/service"
)

const (
	MsgTypeTick = "tick"
	MsgTypePing = "ping"
	MsgTypePong = "pong"

	writeWait = 5 * time.Second
)

// WSMessage is one frame pushed to stream clients.
type WSMessage struct {
	Type      string              `json:"type"`
	Payload   *service.TickResult `json:"payload,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// StreamHandler pushes every tick result to websocket clients.
type StreamHandler struct {
	sched    Scheduler
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewStreamHandler(sched Scheduler, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		sched: sched,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With().Str("component", "stream").Logger(),
	}
}

func (s *StreamHandler) HandleStream(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ticks, unsubscribe := s.sched.Subscribe()
	defer unsubscribe()

	s.logger.Info().Str("remote", c.RealIP()).Msg("stream client connected")

	// client frames are read on their own goroutine; writes stay on this one
	pings := make(chan struct{}, 1)
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn().Err(err).Msg("stream read")
				}
				return
			}
			if msg.Type == MsgTypePing {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	for {
		select {
		case res, ok := <-ticks:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "scheduler closed"),
					time.Now().Add(writeWait))
				return nil
			}
			if err := s.send(ws, WSMessage{Type: MsgTypeTick, Payload: &res, Timestamp: time.Now().UnixMilli()}); err != nil {
				return nil
			}
		case <-pings:
			if err := s.send(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}); err != nil {
				return nil
			}
		case <-closed:
			s.logger.Info().Msg("stream client disconnected")
			return nil
		}
	}
}

func (s *StreamHandler) send(ws *websocket.Conn, msg WSMessage) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ws.WriteJSON(msg); err != nil {
		s.logger.Warn().Err(err).Msg("stream write")
		return err
	}
	return nil
}
