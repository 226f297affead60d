package event_hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/model"
)

func TestCreateEventForAlarm(t *testing.T) {
	a := model.AlarmLog{ID: "a1", SignalID: "sig_4", Severity: model.Warning}
	ev := createEventForAlarm([]byte(`{}`), a, "application/json")

	require.NotNil(t, ev.MessageID)
	assert.Equal(t, "a1", *ev.MessageID)
	require.NotNil(t, ev.ContentType)
	assert.Equal(t, "application/json", *ev.ContentType)
	assert.Equal(t, "sig_4", ev.Properties["signalId"])
	assert.Equal(t, "WARNING", ev.Properties["severity"])
	assert.Equal(t, []byte(`{}`), ev.Body)
}
