package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/codec"
	"github.com/Go-routine-4595/iba-monitor/model"
)

type capture struct {
	subject string
	data    []byte
}

func (c *capture) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return nil
}

func TestNatsSendAlarm(t *testing.T) {
	c := &capture{}
	n, err := newNats(c, NatsConfig{Format: codec.MsgPack})
	require.NoError(t, err)

	a := model.AlarmLog{ID: "a1", SignalID: "sig_2", Value: 88.4, Severity: model.Critical}
	require.NoError(t, n.SendAlarm(a))
	assert.Equal(t, "iba.alarms.sig_2", c.subject)

	dec, _ := codec.New(codec.MsgPack, "")
	env, err := dec.Decode(c.data)
	require.NoError(t, err)
	assert.Equal(t, a, env.Alarm)
}
