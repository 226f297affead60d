package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/model"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaSendAlarm(t *testing.T) {
	w := &fakeWriter{}
	k, err := newKafka(w, KafkaConfig{Format: "json"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, k.SendAlarm(model.AlarmLog{ID: "a1", SignalID: "sig_1", Timestamp: 1000, Severity: model.Critical}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("sig_1"), w.msgs[0].Key)
	assert.Contains(t, string(w.msgs[0].Value), `"id":"a1"`)
	assert.Equal(t, int64(1000), w.msgs[0].Time.UnixMilli())
	assert.Equal(t, "severity", w.msgs[0].Headers[1].Key)
}

func TestKafkaSendAlarmError(t *testing.T) {
	k, err := newKafka(&fakeWriter{err: errors.New("broker down")}, KafkaConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Error(t, k.SendAlarm(model.AlarmLog{}))
}

func TestNewKafkaRequiresTopic(t *testing.T) {
	_, err := NewKafka(context.Background(), nil, KafkaConfig{Brokers: []string{"localhost:9092"}}, zerolog.Nop())
	assert.Error(t, err)
}
