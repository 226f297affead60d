package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/iba-monitor/model"
)

var motorSpeed = model.SignalConfig{
	ID:            "sig_1",
	Name:          "Main Motor Speed",
	Unit:          "rpm",
	Type:          model.Analog,
	Waveform:      model.WaveformRamp,
	Expression:    "val > 1450",
	ThresholdHigh: model.Float(1450),
}

func sampleOf(t *testing.T, e *Evaluator, cfg model.SignalConfig, ts int64, v float64) model.SignalValue {
	t.Helper()
	alarming, err := e.Evaluate(cfg, v)
	require.NoError(t, err)
	return model.SignalValue{ID: cfg.ID, Timestamp: ts, Value: v, IsAlarming: alarming}
}

func TestDeadbandScenario(t *testing.T) {
	e := NewEvaluator()
	l := NewAlarmLog(DefaultDeadband, 0)

	samples := []struct {
		ts int64
		v  float64
	}{{-200, 1400}, {0, 1460}, {100, 1470}, {6000, 1480}}

	var logged []int64
	for _, s := range samples {
		if a := l.Consider(sampleOf(t, e, motorSpeed, s.ts, s.v), motorSpeed); a != nil {
			logged = append(logged, a.Timestamp)
		}
	}

	assert.Equal(t, []int64{0, 6000}, logged)
	require.Equal(t, 2, l.Len())

	first := l.List()[0]
	assert.Equal(t, "sig_1", first.SignalID)
	assert.Equal(t, "Main Motor Speed", first.SignalName)
	assert.Equal(t, model.Critical, first.Severity)
	assert.Equal(t, "Value 1460.00 exceeded limit defined by: val > 1450", first.Message)
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, l.List()[1].ID)
}

func TestDeadbandIsStrict(t *testing.T) {
	l := NewAlarmLog(5*time.Second, 0)
	v := model.SignalValue{ID: "sig_1", Value: 1500, IsAlarming: true}

	require.NotNil(t, l.Consider(v, motorSpeed))
	v.Timestamp = 5000
	assert.Nil(t, l.Consider(v, motorSpeed))
	v.Timestamp = 5001
	assert.NotNil(t, l.Consider(v, motorSpeed))
}

func TestSustainedAlarmRateBounded(t *testing.T) {
	l := NewAlarmLog(5*time.Second, 0)

	var times []int64
	for ts := int64(0); ts <= 60000; ts += 200 {
		v := model.SignalValue{ID: "sig_1", Timestamp: ts, Value: 1500, IsAlarming: true}
		if a := l.Consider(v, motorSpeed); a != nil {
			times = append(times, a.Timestamp)
		}
	}

	require.NotEmpty(t, times)
	// any 5 s window after the first event holds exactly one event
	for start := times[0]; start+5000 <= 60000; start += 200 {
		n := 0
		for _, ts := range times {
			if ts >= start && ts <= start+5000 {
				n++
			}
		}
		assert.Equal(t, 1, n, "window starting at %d", start)
	}
}

func TestDeadbandIsPerSignal(t *testing.T) {
	l := NewAlarmLog(5*time.Second, 0)
	vib := model.SignalConfig{ID: "sig_3", Name: "Shaft Vibration", ThresholdHigh: model.Float(6.5)}

	assert.NotNil(t, l.Consider(model.SignalValue{ID: "sig_1", Timestamp: 0, Value: 1500, IsAlarming: true}, motorSpeed))
	a := l.Consider(model.SignalValue{ID: "sig_3", Timestamp: 100, Value: 7.2, IsAlarming: true}, vib)
	require.NotNil(t, a)
	assert.Equal(t, "Value 7.20 exceeded limit defined by: val > 6.5", a.Message)
}

func TestNonAlarmingSampleIsIgnored(t *testing.T) {
	l := NewAlarmLog(5*time.Second, 0)
	assert.Nil(t, l.Consider(model.SignalValue{ID: "sig_1", Value: 1, IsAlarming: false}, motorSpeed))
	assert.Zero(t, l.Len())
}

func TestClearRemovesDeadbandCarryover(t *testing.T) {
	l := NewAlarmLog(5*time.Second, 0)
	v := model.SignalValue{ID: "sig_1", Timestamp: 1000, Value: 1500, IsAlarming: true}
	require.NotNil(t, l.Consider(v, motorSpeed))

	l.Clear()
	assert.Empty(t, l.List())

	v.Timestamp = 1200
	assert.NotNil(t, l.Consider(v, motorSpeed))
}

func TestAppendedEventsParticipateInDeadband(t *testing.T) {
	l := NewAlarmLog(5*time.Second, 0)
	l.Append(model.AlarmLog{ID: "x", SignalID: "sig_1", Timestamp: 10000, Severity: model.Warning})

	assert.Nil(t, l.Consider(model.SignalValue{ID: "sig_1", Timestamp: 12000, Value: 1500, IsAlarming: true}, motorSpeed))
	assert.NotNil(t, l.Consider(model.SignalValue{ID: "sig_1", Timestamp: 15001, Value: 1500, IsAlarming: true}, motorSpeed))
}

func TestAlarmLogBoundAndRecent(t *testing.T) {
	l := NewAlarmLog(0, 3)
	for i := 0; i < 5; i++ {
		l.Append(model.AlarmLog{ID: string(rune('a' + i))})
	}
	ids := func(s []model.AlarmLog) (out []string) {
		for _, a := range s {
			out = append(out, a.ID)
		}
		return out
	}
	assert.Equal(t, []string{"c", "d", "e"}, ids(l.List()))
	assert.Equal(t, []string{"d", "e"}, ids(l.Recent(2)))
	assert.Equal(t, []string{"c", "d", "e"}, ids(l.Recent(20)))
}
