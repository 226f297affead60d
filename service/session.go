package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Go-routine-4595/iba-monitor/model"
)

// Sampler yields one reading per configured signal. The mock Source never
// fails; a real acquisition backend reports errors here.
type Sampler interface {
	Read(cfg model.SignalConfig, now time.Time) (float64, error)
}

type SessionConfig struct {
	HistoryCapacity int           `yaml:"HistoryCapacity"`
	Deadband        time.Duration `yaml:"Deadband"`
	MaxAlarms       int           `yaml:"MaxAlarms"`
	IP              string        `yaml:"IP"`
	Port            int           `yaml:"Port"`
}

// Session is the dashboard state: configuration, rolling history, alarm log,
// latest values and connection status. All mutation goes through its mutex,
// so the scheduler and user actions never interleave inside an operation.
type Session struct {
	mu          sync.Mutex
	configs     []model.SignalConfig
	byID        map[string]model.SignalConfig
	evaluator   *Evaluator
	sampler     Sampler
	history     *History
	alarms      *AlarmLog
	values      map[string]model.SignalValue
	diagnostics map[string]model.EvalDiagnostic
	status      model.ConnectionStatus
}

// TickResult is what one pipeline pass produced.
type TickResult struct {
	Values      []model.SignalValue    `json:"values"`
	Alarms      []model.AlarmLog       `json:"alarms"`
	Diagnostics []model.EvalDiagnostic `json:"diagnostics,omitempty"`
	Failed      []string               `json:"failed,omitempty"`
}

func NewSession(conf SessionConfig, configs []model.SignalConfig, sampler Sampler) (*Session, error) {
	if err := model.ValidateConfigs(configs); err != nil {
		return nil, errors.Join(err, errors.New("new session"))
	}
	deadband := conf.Deadband
	if deadband == 0 {
		deadband = DefaultDeadband
	}
	s := &Session{
		evaluator:   NewEvaluator(),
		sampler:     sampler,
		history:     NewHistory(conf.HistoryCapacity),
		alarms:      NewAlarmLog(deadband, conf.MaxAlarms),
		values:      make(map[string]model.SignalValue),
		diagnostics: make(map[string]model.EvalDiagnostic),
		status:      model.ConnectionStatus{IP: conf.IP, Port: conf.Port},
	}
	s.setConfigs(configs)
	return s, nil
}

func (s *Session) setConfigs(configs []model.SignalConfig) {
	s.configs = append([]model.SignalConfig(nil), configs...)
	s.byID = make(map[string]model.SignalConfig, len(configs))
	for _, c := range configs {
		s.byID[c.ID] = c
	}
}

// Tick samples, evaluates, buffers and alarm-checks every configured signal.
func (s *Session) Tick(now time.Time) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res TickResult
		ts  = now.UnixMilli()
	)

	for _, cfg := range s.configs {
		raw, err := s.sampler.Read(cfg, now)
		if err != nil {
			res.Failed = append(res.Failed, cfg.ID)
			continue
		}

		alarming, err := s.evaluator.Evaluate(cfg, raw)
		if err != nil {
			d := model.EvalDiagnostic{SignalID: cfg.ID, Expression: cfg.Expression, Error: err.Error(), Timestamp: ts}
			s.diagnostics[cfg.ID] = d
			res.Diagnostics = append(res.Diagnostics, d)
		} else {
			delete(s.diagnostics, cfg.ID)
		}

		v := model.SignalValue{ID: cfg.ID, Timestamp: ts, Value: raw, IsAlarming: alarming}
		res.Values = append(res.Values, v)
		if a := s.record(v); a != nil {
			res.Alarms = append(res.Alarms, *a)
		}
	}

	// a failing backend is reported through the status, never through the tick
	s.status.Degraded = len(res.Failed) > 0
	return res
}

func (s *Session) record(v model.SignalValue) *model.AlarmLog {
	cfg, ok := s.byID[v.ID]
	if !ok {
		panic(fmt.Errorf("%w: %s", model.ErrUnknownSignal, v.ID))
	}
	s.values[v.ID] = v
	s.history.Append(v)
	return s.alarms.Consider(v, cfg)
}

// SaveConfigs replaces the whole configuration. Expressions that do not
// compile are accepted and reported as diagnostics.
func (s *Session) SaveConfigs(configs []model.SignalConfig) ([]model.EvalDiagnostic, error) {
	if err := model.ValidateConfigs(configs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evaluator.Reset()
	s.setConfigs(configs)
	s.diagnostics = make(map[string]model.EvalDiagnostic)
	for id := range s.values {
		if _, ok := s.byID[id]; !ok {
			delete(s.values, id)
		}
	}

	var diags []model.EvalDiagnostic
	for _, c := range configs {
		if err := s.evaluator.Check(c); err != nil {
			d := model.EvalDiagnostic{SignalID: c.ID, Expression: c.Expression, Error: err.Error()}
			s.diagnostics[c.ID] = d
			diags = append(diags, d)
		}
	}
	return diags, nil
}

// Reset starts a fresh acquisition at now: history, latest values and
// diagnostics are dropped. The alarm log survives; only ClearAlarms empties it.
func (s *Session) Reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.sampler.(interface{ Restart(time.Time) }); ok {
		r.Restart(now)
	}
	s.history.Reset()
	s.values = make(map[string]model.SignalValue)
	s.diagnostics = make(map[string]model.EvalDiagnostic)
}

func (s *Session) ClearAlarms() {
	s.mu.Lock()
	s.alarms.Clear()
	s.mu.Unlock()
}

// InjectFault appends a canned multi-signal fault for demonstrations.
func (s *Session) InjectFault(now time.Time) []model.AlarmLog {
	ts := now.UnixMilli()
	fault := []model.AlarmLog{
		{SignalID: "sig_3", SignalName: "Shaft Vibration", Timestamp: ts - 2000, Value: 9.1, Message: "Value 9.10 exceeded limit defined by: val > 6.5", Severity: model.Critical},
		{SignalID: "sig_2", SignalName: "Bearing Temp A", Timestamp: ts - 1000, Value: 88.4, Message: "Value 88.40 exceeded limit defined by: val > 78", Severity: model.Critical},
		{SignalID: "sig_1", SignalName: "Main Motor Speed", Timestamp: ts, Value: 0, Message: "Value 0.00 triggered logic: val < 100 (Stopped)", Severity: model.Warning},
	}
	return s.appendCanned(fault, func(int) string { return uuid.NewString() })
}

// SeedDemoAlarms appends the start-up demonstration history.
func (s *Session) SeedDemoAlarms(now time.Time) []model.AlarmLog {
	ts := now.UnixMilli()
	minute := int64(time.Minute / time.Millisecond)
	demo := []model.AlarmLog{
		{SignalID: "sig_2", SignalName: "Bearing Temp A", Timestamp: ts - 15*minute, Value: 82.5, Message: "Value 82.50 exceeded limit defined by: val > 78", Severity: model.Warning},
		{SignalID: "sig_3", SignalName: "Shaft Vibration", Timestamp: ts - 12*minute, Value: 7.2, Message: "Value 7.20 exceeded limit defined by: val > 6.5", Severity: model.Critical},
		{SignalID: "sig_1", SignalName: "Main Motor Speed", Timestamp: ts - 10*minute, Value: 1550, Message: "Value 1550.00 exceeded limit defined by: val > 1450", Severity: model.Critical},
		{SignalID: "sig_4", SignalName: "Drive Torque", Timestamp: ts - 5*minute, Value: 520, Message: "Value 520.00 exceeded limit defined by: val > 510", Severity: model.Warning},
	}
	return s.appendCanned(demo, func(i int) string { return fmt.Sprintf("demo_%d", i+1) })
}

func (s *Session) appendCanned(alarms []model.AlarmLog, id func(int) string) []model.AlarmLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range alarms {
		alarms[i].ID = id(i)
		// snapshot the current name when the signal is configured
		if cfg, ok := s.byID[alarms[i].SignalID]; ok {
			alarms[i].SignalName = cfg.Name
		}
	}
	s.alarms.Append(alarms...)
	return alarms
}

func (s *Session) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Connected = connected
	if !connected {
		s.status.Latency = 0
		s.status.Degraded = false
	}
}

func (s *Session) SetLatency(ms int) {
	s.mu.Lock()
	s.status.Latency = ms
	s.mu.Unlock()
}

func (s *Session) Status() model.ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Configs() []model.SignalConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SignalConfig(nil), s.configs...)
}

func (s *Session) Config(id string) (model.SignalConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	return c, ok
}

func (s *Session) Values() map[string]model.SignalValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.SignalValue, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Session) History(id string) []model.SignalValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Get(id)
}

func (s *Session) HistorySnapshot() map[string][]model.SignalValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Snapshot()
}

func (s *Session) Alarms() []model.AlarmLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarms.List()
}

func (s *Session) Diagnostics() []model.EvalDiagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.EvalDiagnostic, 0, len(s.diagnostics))
	for _, c := range s.configs {
		if d, ok := s.diagnostics[c.ID]; ok {
			out = append(out, d)
		}
	}
	return out
}
