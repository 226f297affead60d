package model

import (
	"context"
	"errors"
	"fmt"
)

type SignalType string

const (
	Analog     SignalType = "ANALOG"
	Digital    SignalType = "DIGITAL"
	Calculated SignalType = "CALCULATED"
)

// WaveformKind selects the synthetic behavior the mock source uses for a signal.
type WaveformKind string

const (
	WaveformRamp       WaveformKind = "ramp"
	WaveformSine       WaveformKind = "sine"
	WaveformSpikyNoise WaveformKind = "spiky-noise"
	WaveformCosine     WaveformKind = "cosine"
	WaveformUniform    WaveformKind = "uniform"
)

type Severity string

const (
	Warning  Severity = "WARNING"
	Critical Severity = "CRITICAL"
)

var (
	ErrDuplicateID   = errors.New("duplicate signal id")
	ErrUnknownSignal = errors.New("unknown signal id")
)

// SignalConfig is the static definition of a monitored quantity.
// Expression, when set, takes precedence over the legacy thresholds.
type SignalConfig struct {
	ID            string       `json:"id" yaml:"id" msgpack:"id"`
	Name          string       `json:"name" yaml:"name" msgpack:"name"`
	Unit          string       `json:"unit" yaml:"unit" msgpack:"unit"`
	Type          SignalType   `json:"type" yaml:"type" msgpack:"type"`
	Waveform      WaveformKind `json:"waveform,omitempty" yaml:"waveform" msgpack:"waveform"`
	Expression    string       `json:"expression,omitempty" yaml:"expression" msgpack:"expression"`
	ThresholdHigh *float64     `json:"thresholdHigh,omitempty" yaml:"thresholdHigh" msgpack:"thresholdHigh"`
	ThresholdLow  *float64     `json:"thresholdLow,omitempty" yaml:"thresholdLow" msgpack:"thresholdLow"`
	Description   string       `json:"description" yaml:"description" msgpack:"description"`
}

func (c SignalConfig) Validate() error {
	if c.ID == "" {
		return errors.New("signal config: empty id")
	}
	if c.Name == "" {
		return fmt.Errorf("signal config %s: empty name", c.ID)
	}
	switch c.Type {
	case Analog, Digital, Calculated:
	default:
		return fmt.Errorf("signal config %s: invalid type %q", c.ID, c.Type)
	}
	switch c.Waveform {
	case "", WaveformRamp, WaveformSine, WaveformSpikyNoise, WaveformCosine, WaveformUniform:
	default:
		return fmt.Errorf("signal config %s: invalid waveform %q", c.ID, c.Waveform)
	}
	return nil
}

// ValidateConfigs checks every config and the global uniqueness of ids.
func ValidateConfigs(configs []SignalConfig) error {
	seen := make(map[string]struct{}, len(configs))
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, ok := seen[c.ID]; ok {
			return errors.Join(ErrDuplicateID, fmt.Errorf("signal config %s", c.ID))
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// Float returns a pointer to f, for threshold literals.
func Float(f float64) *float64 {
	return &f
}

// SignalValue is one sample. Timestamp is wall clock in unix milliseconds.
type SignalValue struct {
	ID         string  `json:"id" msgpack:"id"`
	Timestamp  int64   `json:"timestamp" msgpack:"timestamp"`
	Value      float64 `json:"value" msgpack:"value"`
	IsAlarming bool    `json:"isAlarming" msgpack:"isAlarming"`
}

// AlarmLog is one discrete alarm event. SignalName is a snapshot taken when the
// event was created.
type AlarmLog struct {
	ID         string   `json:"id" msgpack:"id"`
	SignalID   string   `json:"signalId" msgpack:"signalId"`
	SignalName string   `json:"signalName" msgpack:"signalName"`
	Timestamp  int64    `json:"timestamp" msgpack:"timestamp"`
	Value      float64  `json:"value" msgpack:"value"`
	Message    string   `json:"message" msgpack:"message"`
	Severity   Severity `json:"severity" msgpack:"severity"`
}

type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Latency   int    `json:"latency"`
	Degraded  bool   `json:"degraded"`
}

// EvalDiagnostic flags a signal whose alarm expression could not be evaluated.
type EvalDiagnostic struct {
	SignalID   string `json:"signalId"`
	Expression string `json:"expression"`
	Error      string `json:"error"`
	Timestamp  int64  `json:"timestamp"`
}

// IGateway delivers alarm events to an outbound channel.
type IGateway interface {
	SendAlarm(alarm AlarmLog) error
}

// INotifier requests the alarm side effect. Must not block the caller.
type INotifier interface {
	Notify(alarm AlarmLog)
}

// IAnalyzer produces a root-cause report from the alarm history.
type IAnalyzer interface {
	Analyze(ctx context.Context, alarms []AlarmLog) (string, error)
}
