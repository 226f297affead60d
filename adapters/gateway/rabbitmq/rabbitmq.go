package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/codec"
	"github.com/Go-routine-4595/iba-monitor/model"
)

var ErrQueueFull = errors.New("rabbitmq: outbound queue full")

type RabbitMQConfig struct {
	ConnectionString string        `yaml:"ConnectionString"`
	QueueName        string        `yaml:"QueueName"`
	Format           string        `yaml:"Format"`
	Buffer           int           `yaml:"Buffer"`
	ReconnectDelay   time.Duration `yaml:"ReconnectDelay"`
}

// RabbitMQ publishes alarms to a durable queue from a single goroutine,
// reconnecting when a publish fails.
type RabbitMQ struct {
	ConnectionString string
	QueueName        string
	reconnectDelay   time.Duration
	msgs             chan []byte
	codec            codec.Codec
	logger           zerolog.Logger
	conn             *amqp.Connection
	ch               *amqp.Channel
}

func NewRabbitMQ(config RabbitMQConfig, logger zerolog.Logger) (*RabbitMQ, error) {
	c, err := codec.New(config.Format, "")
	if err != nil {
		return nil, err
	}
	if config.Buffer <= 0 {
		config.Buffer = 64
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}
	return &RabbitMQ{
		msgs:             make(chan []byte, config.Buffer),
		ConnectionString: config.ConnectionString,
		QueueName:        config.QueueName,
		reconnectDelay:   config.ReconnectDelay,
		codec:            c,
		logger:           logger.With().Str("component", "rabbitmq").Logger(),
	}, nil
}

// SendAlarm queues the alarm for publishing; it never blocks.
func (r *RabbitMQ) SendAlarm(a model.AlarmLog) error {
	msg, err := r.codec.Encode(a)
	if err != nil {
		return err
	}
	select {
	case r.msgs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// connect establishes a new connection and channel
func (r *RabbitMQ) connect() error {
	var (
		err error
	)
	r.conn, err = amqp.Dial(r.ConnectionString)
	if err != nil {
		return err
	}

	r.ch, err = r.conn.Channel()
	if err != nil {
		return err
	}

	_, err = r.ch.QueueDeclare(
		r.QueueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	return err
}

// reconnect retries until it succeeds or ctx is done
func (r *RabbitMQ) reconnect(ctx context.Context) bool {
	for {
		r.logger.Info().Msg("Attempting to reconnect to RabbitMQ...")
		err := r.connect()
		if err == nil {
			r.logger.Info().Msg("Successfully reconnected to RabbitMQ...")
			return true
		}
		r.logger.Error().Err(err).Msg("Reconnect failed")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(r.reconnectDelay):
		}
	}
}

// Start connects and runs the publisher until ctx is cancelled.
func (r *RabbitMQ) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := r.connect(); err != nil {
		return errors.Join(err, errors.New("failed to connect to RabbitMQ"))
	}

	wg.Add(1)
	go r.publish(ctx, wg)
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

func (r *RabbitMQ) publish(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			if err := r.Close(); err != nil {
				r.logger.Error().Err(err).Msg("close connection")
			}
			r.logger.Info().Msg("Received interrupt signal, closing connection")
			return
		case msg := <-r.msgs:
			err := r.ch.Publish(
				"",          // Exchange
				r.QueueName, // Routing key (queue name)
				false,       // Mandatory
				false,       // Immediate
				amqp.Publishing{
					ContentType: r.codec.ContentType(),
					Timestamp:   time.Now(),
					Body:        msg,
				},
			)
			if err != nil {
				r.logger.Error().Err(err).Msg("Failed to publish a message")
				if !r.reconnect(ctx) {
					return
				}
			}
		}
	}
}
