package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/model"
	"github.com/Go-routine-4595/iba-monitor/service"
)

func TestStreamPushesTicks(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	f.sched.ticks <- service.TickResult{
		Values: []model.SignalValue{{ID: "sig_1", Value: 1460, IsAlarming: true}},
	}

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypeTick, msg.Type)
	require.NotNil(t, msg.Payload)
	assert.Equal(t, 1460.0, msg.Payload.Values[0].Value)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing}))
	msg = WSMessage{}
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, MsgTypePong, msg.Type)
}

func TestStreamClosesWithScheduler(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	close(f.sched.ticks)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}
