package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/model"
)

type fakeGenerator struct {
	calls  int
	prompt string
	text   string
	err    error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.text, f.err
}

func alarms(n int) []model.AlarmLog {
	out := make([]model.AlarmLog, n)
	for i := range out {
		out[i] = model.AlarmLog{ID: fmt.Sprintf("alarm-%02d", i), SignalID: "sig_1", Severity: model.Critical}
	}
	return out
}

func TestAnalyzeEmptyLogSkipsRemoteCall(t *testing.T) {
	gen := &fakeGenerator{}
	a := NewAnalyzer(gen, AnalyzerConfig{}, zerolog.Nop())

	out, err := a.Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NothingToAnalyze, out)
	assert.Zero(t, gen.calls)

	// no key needed either
	out, err = NewAnalyzer(nil, AnalyzerConfig{}, zerolog.Nop()).Analyze(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, NothingToAnalyze, out)
}

func TestAnalyzeMissingKeyFailsFast(t *testing.T) {
	a := NewAnalyzer(nil, AnalyzerConfig{}, zerolog.Nop())
	_, err := a.Analyze(context.Background(), alarms(1))
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewGemini(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestAnalyzeSendsMostRecentTwenty(t *testing.T) {
	gen := &fakeGenerator{text: "## RCA"}
	a := NewAnalyzer(gen, AnalyzerConfig{}, zerolog.Nop())

	out, err := a.Analyze(context.Background(), alarms(25))
	require.NoError(t, err)
	assert.Equal(t, "## RCA", out)
	assert.Equal(t, 1, gen.calls)
	assert.NotContains(t, gen.prompt, `"alarm-04"`)
	assert.Contains(t, gen.prompt, `"alarm-05"`)
	assert.Contains(t, gen.prompt, `"alarm-24"`)
	assert.Equal(t, 20, strings.Count(gen.prompt, `"signalId"`))
}

func TestAnalyzeServiceFailureIsUserSafe(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("401 unauthorized: key=sk-secret")}
	a := NewAnalyzer(gen, AnalyzerConfig{Timeout: time.Second}, zerolog.Nop())

	out, err := a.Analyze(context.Background(), alarms(3))
	require.NoError(t, err)
	assert.Equal(t, ServiceError, out)
	assert.NotContains(t, out, "sk-secret")
}

func TestAnalyzeEmptyReport(t *testing.T) {
	a := NewAnalyzer(&fakeGenerator{}, AnalyzerConfig{}, zerolog.Nop())
	out, err := a.Analyze(context.Background(), alarms(1))
	require.NoError(t, err)
	assert.Equal(t, EmptyReport, out)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "from-env")
	assert.Equal(t, "from-env", APIKeyFromEnv(AnalyzerConfig{}))
	assert.Equal(t, "cfg", APIKeyFromEnv(AnalyzerConfig{APIKey: "cfg"}))

	t.Setenv("GEMINI_API_KEY", "gemini")
	assert.Equal(t, "gemini", APIKeyFromEnv(AnalyzerConfig{}))
}
