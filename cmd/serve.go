package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Go-routine-4595/iba-monitor/adapters/analyzer"
	"github.com/Go-routine-4595/iba-monitor/adapters/api"
	"github.com/Go-routine-4595/iba-monitor/adapters/controller"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/display"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/event-hub"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/kafka"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/mqtt"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/nats"
	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/rabbitmq"
	"github.com/Go-routine-4595/iba-monitor/adapters/metrics"
	"github.com/Go-routine-4595/iba-monitor/adapters/notifier"
	"github.com/Go-routine-4595/iba-monitor/model"
	"github.com/Go-routine-4595/iba-monitor/service"
)

type serveOptions struct {
	configPath  string
	logLevel    string
	autoConnect bool
}

func newServeCommand() *cobra.Command {
	var opts serveOptions
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the acquisition loop and the dashboard API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := openConfigFile(opts.configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				conf.LogLevel = opts.logLevel
			}
			if cmd.Flags().Changed("autoconnect") {
				conf.AutoConnect = opts.autoConnect
			}
			return serve(conf)
		},
	}
	c.Flags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "configuration file")
	c.Flags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	c.Flags().BoolVar(&opts.autoConnect, "autoconnect", false, "start acquiring immediately")
	return c
}

func serve(conf Config) error {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		sig    chan os.Signal
		wg     *sync.WaitGroup
	)

	logger, err := createLogger(conf.LogLevel)
	if err != nil {
		return errors.Join(err, errors.New("log level"))
	}

	signals := service.DefaultSignals()
	if conf.SignalsFile != "" {
		if signals, err = service.LoadSignals(conf.SignalsFile); err != nil {
			return err
		}
	}

	now := time.Now()
	session, err := service.NewSession(conf.SessionConfig, signals, service.NewSource(now, now.UnixNano()))
	if err != nil {
		return err
	}
	if conf.SeedDemoAlarms {
		session.SeedDemoAlarms(now)
	}

	wg = &sync.WaitGroup{}
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	n := notifier.NewNotifier(logger, buildGateways(ctx, wg, conf, logger),
		notifier.WithQueueSize(conf.NotifyQueue),
		notifier.WithDropHook(m.NotificationDropped),
		notifier.WithFailureHook(m.GatewayFailed),
	)
	n.Start(ctx, wg)

	svc := service.NewService(session, n,
		service.WithMetrics(m),
		service.WithAnalyzer(buildAnalyzer(ctx, conf.AnalyzerConfig, logger)),
		service.WithLogger(logger),
	)

	ctrl := controller.NewController(conf.ControllerConfig, svc, logger)
	ctrl.Start(ctx, wg)

	deps := &api.Dependencies{
		Service:   svc,
		Scheduler: ctrl,
		Metrics:   m.Handler(),
		Version:   Version,
		Logger:    logger,
	}
	if conf.PersistSignals {
		deps.SignalsFile = conf.SignalsFile
	}
	api.NewServer(conf.ApiConfig, deps).Start(ctx, wg)

	sig = make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	wg.Wait()
	return nil
}

// buildGateways starts every configured gateway. One that fails to start is
// logged and left out; the console display stays available as a fallback.
func buildGateways(ctx context.Context, wg *sync.WaitGroup, conf Config, logger zerolog.Logger) []notifier.Gateway {
	var gateways []notifier.Gateway
	add := func(name string, g model.IGateway, err error) {
		if err != nil {
			logger.Error().Err(err).Str("gateway", name).Msg("gateway disabled")
			return
		}
		gateways = append(gateways, notifier.Gateway{Name: name, IGateway: g})
		logger.Info().Str("gateway", name).Msg("gateway enabled")
	}

	if conf.Mqtt != nil {
		g, err := mqtt.NewMqtt(ctx, wg, *conf.Mqtt, int(logger.GetLevel()-zerolog.InfoLevel))
		add("mqtt", g, err)
	}
	if conf.Rabbit != nil {
		g, err := rabbitmq.NewRabbitMQ(*conf.Rabbit, logger)
		if err == nil {
			err = g.Start(ctx, wg)
		}
		add("rabbitmq", g, err)
	}
	if conf.EventHub != nil {
		g, err := event_hub.NewEventHub(ctx, wg, *conf.EventHub, logger)
		add("event-hub", g, err)
	}
	if conf.Kafka != nil {
		g, err := kafka.NewKafka(ctx, wg, *conf.Kafka, logger)
		add("kafka", g, err)
	}
	if conf.Nats != nil {
		g, err := nats.NewNats(ctx, wg, *conf.Nats, logger)
		add("nats", g, err)
	}
	if conf.DisplayConfig.Enabled || len(gateways) == 0 {
		add("display", display.NewDisplay(conf.DisplayConfig), nil)
	}
	return gateways
}

func buildAnalyzer(ctx context.Context, conf analyzer.AnalyzerConfig, logger zerolog.Logger) *analyzer.Analyzer {
	var gen analyzer.Generator
	if key := analyzer.APIKeyFromEnv(conf); key != "" {
		g, err := analyzer.NewGemini(ctx, key, conf.Model)
		if err != nil {
			logger.Error().Err(err).Msg("gemini client")
		} else {
			gen = g
		}
	} else {
		logger.Warn().Msg("no AI API key configured, analysis disabled")
	}
	return analyzer.NewAnalyzer(gen, conf, logger)
}
