package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"sync"
	"time"

	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"

	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/codec"
	"github.com/Go-routine-4595/iba-monitor/model"
)

// MqttConf holds the configuration for the MQTT client.
type MqttConf struct {
	Connection         string `yaml:"Connection"`
	Topic              string `yaml:"Topic"`
	Format             string `yaml:"Format"`
	InsecureSkipVerify bool   `yaml:"InsecureSkipVerify"`
}

// Mqtt publishes alarm events to an MQTT broker, one message per alarm on
// Topic/<signal id>.
type Mqtt struct {
	Topic    string
	ClientID uuid.UUID
	logger   zerolog.Logger
	codec    codec.Codec
	opt      *pmqtt.ClientOptions
	client   pmqtt.Client
}

func NewMqtt(ctx context.Context, wg *sync.WaitGroup, conf MqttConf, logl int) (*Mqtt, error) {
	var (
		err error
		cid uuid.UUID
		l   zerolog.Logger
		c   codec.Codec
	)

	c, err = codec.New(conf.Format, "")
	if err != nil {
		return nil, err
	}

	cid = uuid.NewV4()
	l = createLogger(logl)
	m := &Mqtt{
		Topic:    conf.Topic,
		ClientID: cid,
		logger:   l,
		codec:    c,
		opt: pmqtt.NewClientOptions().
			AddBroker(conf.Connection).
			SetClientID("iba-monitor-" + cid.String()).
			SetCleanSession(true).
			SetAutoReconnect(true).
			SetTLSConfig(&tls.Config{
				InsecureSkipVerify: conf.InsecureSkipVerify,
			}).
			SetConnectionLostHandler(ConnectLostHandler(l)).
			SetOnConnectHandler(ConnectHandler(l)),
	}

	err = m.Connect()
	if err != nil {
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		m.Disconnect()
	}()

	return m, nil
}

// createLogger initializes a zerolog.Logger with standard settings.
func createLogger(logLevel int) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(zerolog.InfoLevel+zerolog.Level(logLevel)).
		With().Timestamp().Int("pid", os.Getpid()).Str("component", "mqtt").Logger()
}

// TopicFor returns the topic an alarm is published on.
func (m *Mqtt) TopicFor(a model.AlarmLog) string {
	return m.Topic + "/" + a.SignalID
}

// SendAlarm publishes with QoS 1 and waits at most 200ms for the broker ack.
func (m *Mqtt) SendAlarm(a model.AlarmLog) error {
	var (
		err   error
		b     []byte
		token pmqtt.Token
	)

	b, err = m.codec.Encode(a)
	if err != nil {
		m.logger.Error().Err(err).Str("alarm", a.ID).Msg("failed to marshal alarm")
		return err
	}
	token = m.client.Publish(m.TopicFor(a), 1, false, b)
	if !token.WaitTimeout(200 * time.Millisecond) {
		m.logger.Warn().Str("alarm", a.ID).Msg("Timeout exceeded during publishing")
		return nil
	}
	if token.Error() != nil {
		m.logger.Error().Err(token.Error()).Str("alarm", a.ID).Msg("publish failed")
		return errors.Join(token.Error(), errors.New("mqtt publish"))
	}
	return nil
}

// Disconnect terminates the connection to the MQTT broker and logs the disconnection event.
func (m *Mqtt) Disconnect() {
	if m.client == nil {
		return
	}
	m.client.Disconnect(250)
	m.logger.Warn().Msg("Disconnected from mqtt broker")
}

func (m *Mqtt) Connect() error {
	m.client = pmqtt.NewClient(m.opt)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		m.logger.Error().Err(token.Error()).Msg("Error connecting to mqtt broker")
		return errors.Join(token.Error(), errors.New("Error connecting to mqtt broker"))
	}
	return nil
}

func ConnectHandler(logger zerolog.Logger) func(client pmqtt.Client) {
	return func(client pmqtt.Client) {
		logger.Info().Msg("Connected to mqtt broker")
	}
}

func ConnectLostHandler(logger zerolog.Logger) func(client pmqtt.Client, err error) {
	return func(client pmqtt.Client, err error) {
		logger.Warn().Err(err).Msg("Connection Lost")
	}
}
