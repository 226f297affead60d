package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/model"
)

// Metrics receives pipeline measurements.
type Metrics interface {
	ObserveTick(d time.Duration, samples int)
	AlarmRaised(severity model.Severity)
	ExpressionError(signalID string)
	SourceError(signalID string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(time.Duration, int) {}
func (nopMetrics) AlarmRaised(model.Severity) {}
func (nopMetrics) ExpressionError(string) {}
func (nopMetrics) SourceError(string) {}

type nopNotifier struct{}

func (nopNotifier) Notify(model.AlarmLog) {}

// Service runs the pipeline over a Session and hands new alarms to the notifier.
type Service struct {
	session  *Session
	notifier model.INotifier
	analyzer model.IAnalyzer
	metrics  Metrics
	logger   zerolog.Logger
}

type Option func(*Service)

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithAnalyzer(a model.IAnalyzer) Option {
	return func(s *Service) {
		s.analyzer = a
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l.With().Str("component", "service").Logger()
	}
}

func NewService(session *Session, n model.INotifier, opts ...Option) *Service {
	if n == nil {
		n = nopNotifier{}
	}
	s := &Service{
		session:  session,
		notifier: n,
		metrics:  nopMetrics{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Session() *Session {
	return s.session
}

// Tick performs one full pipeline pass and refreshes the simulated latency.
func (s *Service) Tick(now time.Time) TickResult {
	start := time.Now()
	res := s.session.Tick(now)
	s.session.SetLatency(5 + rand.Intn(15))

	for _, d := range res.Diagnostics {
		s.metrics.ExpressionError(d.SignalID)
		s.logger.Debug().Str("signal", d.SignalID).Str("expression", d.Expression).Str("error", d.Error).Msg("expression evaluation failed")
	}
	for _, id := range res.Failed {
		s.metrics.SourceError(id)
		s.logger.Warn().Str("signal", id).Msg("source read failed")
	}
	for _, a := range res.Alarms {
		s.raise(a)
	}

	s.metrics.ObserveTick(time.Since(start), len(res.Values))
	return res
}

func (s *Service) raise(a model.AlarmLog) {
	s.metrics.AlarmRaised(a.Severity)
	s.logger.Info().
		Str("signal", a.SignalID).
		Str("severity", string(a.Severity)).
		Float64("value", a.Value).
		Msg(a.Message)
	s.notifier.Notify(a)
}

// Connect resets the acquisition state and marks the session online.
func (s *Service) Connect(now time.Time) {
	s.session.Reset(now)
	s.session.SetConnected(true)
	s.logger.Info().Msg("connected")
}

func (s *Service) Disconnect() {
	s.session.SetConnected(false)
	s.logger.Info().Msg("disconnected")
}

func (s *Service) SaveConfigs(configs []model.SignalConfig) ([]model.EvalDiagnostic, error) {
	diags, err := s.session.SaveConfigs(configs)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		s.logger.Warn().Str("signal", d.SignalID).Str("expression", d.Expression).Str("error", d.Error).Msg("invalid alarm expression")
	}
	s.logger.Info().Int("signals", len(configs)).Msg("configuration replaced")
	return diags, nil
}

func (s *Service) ClearAlarms() {
	s.session.ClearAlarms()
	s.logger.Info().Msg("alarms cleared")
}

func (s *Service) InjectFault(now time.Time) []model.AlarmLog {
	alarms := s.session.InjectFault(now)
	for _, a := range alarms {
		s.raise(a)
	}
	return alarms
}

var ErrNoAnalyzer = errors.New("no analyzer configured")

// Analyze sends a copy of the alarm log to the analyzer. The session is not
// locked during the call, so ticks proceed independently.
func (s *Service) Analyze(ctx context.Context) (string, error) {
	if s.analyzer == nil {
		return "", ErrNoAnalyzer
	}
	return s.analyzer.Analyze(ctx, s.session.Alarms())
}
