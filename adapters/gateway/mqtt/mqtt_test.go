package mqtt

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Go-routine-4595/iba-monitor/model"
)

func TestTopicFor(t *testing.T) {
	m := &Mqtt{Topic: "plant/line1/alarms"}
	assert.Equal(t, "plant/line1/alarms/sig_3", m.TopicFor(model.AlarmLog{SignalID: "sig_3"}))
}

func TestNewMqttRejectsUnknownFormat(t *testing.T) {
	_, err := NewMqtt(context.Background(), &sync.WaitGroup{}, MqttConf{Connection: "tcp://127.0.0.1:1", Format: "xml"}, 0)
	assert.ErrorContains(t, err, "unknown payload format")
}

func TestDisconnectWithoutClient(t *testing.T) {
	m := &Mqtt{logger: createLogger(0)}
	assert.NotPanics(t, m.Disconnect)
}
