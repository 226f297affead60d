package nats

import (
	"context"
	"errors"
	"sync"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/codec"
	"github.com/Go-routine-4595/iba-monitor/model"
)

type NatsConfig struct {
	URL     string `yaml:"URL"`
	Subject string `yaml:"Subject"`
	Format  string `yaml:"Format"`
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// Nats publishes each alarm on <Subject>.<signal id>.
type Nats struct {
	conn    publisher
	subject string
	codec   codec.Codec
}

func NewNats(ctx context.Context, wg *sync.WaitGroup, conf NatsConfig, logger zerolog.Logger) (*Nats, error) {
	l := logger.With().Str("component", "nats").Logger()
	conn, err := natsgo.Connect(conf.URL,
		natsgo.Name("iba-monitor"),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			l.Warn().Err(err).Msg("Connection Lost")
		}),
		natsgo.ReconnectHandler(func(_ *natsgo.Conn) {
			l.Info().Msg("Reconnected to nats")
		}),
	)
	if err != nil {
		return nil, errors.Join(err, errors.New("connect to nats"))
	}

	n, err := newNats(conn, conf)
	if err != nil {
		conn.Close()
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := conn.Drain(); err != nil {
			l.Error().Err(err).Msg("drain")
		}
		conn.Close()
	}()
	return n, nil
}

func newNats(conn publisher, conf NatsConfig) (*Nats, error) {
	c, err := codec.New(conf.Format, "")
	if err != nil {
		return nil, err
	}
	if conf.Subject == "" {
		conf.Subject = "iba.alarms"
	}
	return &Nats{conn: conn, subject: conf.Subject, codec: c}, nil
}

func (n *Nats) SubjectFor(a model.AlarmLog) string {
	return n.subject + "." + a.SignalID
}

func (n *Nats) SendAlarm(a model.AlarmLog) error {
	data, err := n.codec.Encode(a)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.SubjectFor(a), data)
}
