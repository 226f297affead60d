package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/codec"
	"github.com/Go-routine-4595/iba-monitor/model"
)

type KafkaConfig struct {
	Brokers      []string      `yaml:"Brokers"`
	Topic        string        `yaml:"Topic"`
	Format       string        `yaml:"Format"`
	WriteTimeout time.Duration `yaml:"WriteTimeout"`
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Kafka writes alarms keyed by signal id, so all events of one signal land on
// the same partition.
type Kafka struct {
	w       writer
	codec   codec.Codec
	timeout time.Duration
	logger  zerolog.Logger
}

func NewKafka(ctx context.Context, wg *sync.WaitGroup, conf KafkaConfig, logger zerolog.Logger) (*Kafka, error) {
	if len(conf.Brokers) == 0 || conf.Topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(conf.Brokers...),
		Topic:        conf.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		Async:        false,
	}
	k, err := newKafka(w, conf, logger)
	if err != nil {
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := w.Close(); err != nil {
			k.logger.Error().Err(err).Msg("close writer")
		}
	}()
	return k, nil
}

func newKafka(w writer, conf KafkaConfig, logger zerolog.Logger) (*Kafka, error) {
	c, err := codec.New(conf.Format, "")
	if err != nil {
		return nil, err
	}
	if conf.WriteTimeout <= 0 {
		conf.WriteTimeout = 5 * time.Second
	}
	return &Kafka{
		w:       w,
		codec:   c,
		timeout: conf.WriteTimeout,
		logger:  logger.With().Str("component", "kafka").Logger(),
	}, nil
}

func (k *Kafka) SendAlarm(a model.AlarmLog) error {
	b, err := k.codec.Encode(a)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	err = k.w.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(a.SignalID),
		Value: b,
		Time:  time.UnixMilli(a.Timestamp),
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte(k.codec.ContentType())},
			{Key: "severity", Value: []byte(a.Severity)},
		},
	})
	if err != nil {
		return errors.Join(err, errors.New("kafka write alarm"))
	}
	return nil
}
