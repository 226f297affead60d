package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/model"
)

const (
	NothingToAnalyze = "No alarms to analyze. The system is running smoothly."
	ServiceError     = "Error: Could not contact AI service for analysis."
	EmptyReport      = "Unable to generate analysis."

	DefaultModel     = "gemini-2.5-flash"
	DefaultMaxAlarms = 20
)

var ErrMissingAPIKey = errors.New("analyzer: API key is missing")

type AnalyzerConfig struct {
	APIKey    string        `yaml:"APIKey"`
	Model     string        `yaml:"Model"`
	Timeout   time.Duration `yaml:"Timeout"`
	MaxAlarms int           `yaml:"MaxAlarms"`
}

// Generator is the remote text model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Analyzer turns the alarm log into a root-cause report. Remote failures are
// reported as a readable message, never as an error; a missing API key is
// the only error it returns.
type Analyzer struct {
	gen       Generator
	timeout   time.Duration
	maxAlarms int
	logger    zerolog.Logger
}

// APIKeyFromEnv resolves the key when the config leaves it empty.
func APIKeyFromEnv(conf AnalyzerConfig) string {
	if conf.APIKey != "" {
		return conf.APIKey
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("API_KEY")
}

// NewAnalyzer builds an analyzer; gen may be nil when no key is configured.
func NewAnalyzer(gen Generator, conf AnalyzerConfig, logger zerolog.Logger) *Analyzer {
	if conf.Timeout <= 0 {
		conf.Timeout = 60 * time.Second
	}
	if conf.MaxAlarms <= 0 {
		conf.MaxAlarms = DefaultMaxAlarms
	}
	return &Analyzer{
		gen:       gen,
		timeout:   conf.Timeout,
		maxAlarms: conf.MaxAlarms,
		logger:    logger.With().Str("component", "analyzer").Logger(),
	}
}

func (a *Analyzer) Analyze(ctx context.Context, alarms []model.AlarmLog) (string, error) {
	if len(alarms) == 0 {
		return NothingToAnalyze, nil
	}
	if a.gen == nil {
		return "", ErrMissingAPIKey
	}

	prompt, err := buildPrompt(recent(alarms, a.maxAlarms))
	if err != nil {
		a.logger.Error().Err(err).Msg("build prompt")
		return ServiceError, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Error().Err(err).Msg("analysis failed")
		return ServiceError, nil
	}
	if text == "" {
		return EmptyReport, nil
	}
	return text, nil
}

func recent(alarms []model.AlarmLog, n int) []model.AlarmLog {
	if len(alarms) <= n {
		return alarms
	}
	return alarms[len(alarms)-n:]
}

func buildPrompt(alarms []model.AlarmLog) (string, error) {
	data, err := json.MarshalIndent(alarms, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`You are an industrial automation expert analyzing an error log from an ibaPDA system.
Analyze the following JSON alarm history:
%s

Please provide a concise Root Cause Analysis (RCA) in Markdown format.
1. Identify the most frequent alarms.
2. Look for correlations (e.g., did high speed cause high vibration?).
3. Recommend immediate maintenance actions.
Keep the tone professional and technical.
`, data), nil
}
