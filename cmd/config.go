package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/Go-routine-4595/iba-monitor/adapters/analyzer"
	"github.com/Go-routine-4595/iba-monitor/adapters/api"
	"github.com/Go-routine-4595/iba-monitor/adapters/controller"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/display"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/event-hub"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/kafka"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/mqtt"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/nats"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/rabbitmq"
	"github.com/Go-routine-4595/iba-monitor/service"
)

// Config mirrors config.yaml. A gateway section left out disables that gateway.
type Config struct {
	LogLevel       string `yaml:"LogLevel"`
	SignalsFile    string `yaml:"SignalsFile"`
	PersistSignals bool   `yaml:"PersistSignals"`
	SeedDemoAlarms bool   `yaml:"SeedDemoAlarms"`
	NotifyQueue    int    `yaml:"NotifyQueue"`

	controller.ControllerConfig `yaml:"ControllerConfig"`
	service.SessionConfig       `yaml:"PipelineConfig"`
	api.ApiConfig               `yaml:"ApiConfig"`
	analyzer.AnalyzerConfig     `yaml:"AnalyzerConfig"`
	display.DisplayConfig       `yaml:"DisplayConfig"`

	Mqtt     *mqtt.MqttConf            `yaml:"MqttConfig"`
	Rabbit   *rabbitmq.RabbitMQConfig  `yaml:"RabbitConfig"`
	EventHub *event_hub.EventHubConfig `yaml:"EventHubConfig"`
	Kafka    *kafka.KafkaConfig        `yaml:"KafkaConfig"`
	Nats     *nats.NatsConfig          `yaml:"NatsConfig"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:         "info",
		ControllerConfig: controller.ControllerConfig{Period: controller.DefaultPeriod},
		SessionConfig: service.SessionConfig{
			HistoryCapacity: service.DefaultHistoryCapacity,
			Deadband:        service.DefaultDeadband,
			MaxAlarms:       service.DefaultMaxAlarmCount,
			IP:              "192.168.0.10",
			Port:            502,
		},
		ApiConfig:     api.ApiConfig{Address: api.DefaultAddress, ReadTimeout: 15 * time.Second},
		DisplayConfig: display.DisplayConfig{Enabled: true, Bell: true},
	}
}

// openConfigFile reads s over the defaults. A missing default file is not an
// error; a missing explicit file is.
func openConfigFile(s string, explicit bool) (Config, error) {
	config := defaultConfig()
	if s == "" {
		s = "config.yaml"
	}

	f, err := os.Open(s)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return config, errors.Join(err, fmt.Errorf("open %s file", s))
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err = decoder.Decode(&config); err != nil {
		return config, errors.Join(err, fmt.Errorf("decode %s", s))
	}
	return config, nil
}

func createLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Int("pid", os.Getpid()).Logger(), nil
}

func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}
