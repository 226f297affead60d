package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Go-routine-4595/iba-monitor/model"
)

func TestSourceWaveformRanges(t *testing.T) {
	start := time.Unix(0, 0)
	src := NewSource(start, 42)

	for i := 0; i < 2000; i++ {
		now := start.Add(time.Duration(i) * 200 * time.Millisecond)

		ramp := src.Sample(model.SignalConfig{Waveform: model.WaveformRamp}, now)
		assert.True(t, ramp >= -310 && ramp <= 1510, "ramp %v", ramp)

		sine := src.Sample(model.SignalConfig{Waveform: model.WaveformSine}, now)
		assert.True(t, sine >= 40 && sine <= 81, "sine %v", sine)

		spiky := src.Sample(model.SignalConfig{Waveform: model.WaveformSpikyNoise}, now)
		assert.True(t, spiky >= 2 && spiky <= 10, "spiky %v", spiky)

		cosine := src.Sample(model.SignalConfig{Waveform: model.WaveformCosine}, now)
		assert.True(t, cosine >= 300 && cosine <= 510, "cosine %v", cosine)

		uniform := src.Sample(model.SignalConfig{}, now)
		assert.True(t, uniform >= 0 && uniform <= 100, "uniform %v", uniform)
	}
}

func TestSourceRampDips(t *testing.T) {
	start := time.Unix(0, 0)
	src := NewSource(start, 7)
	cfg := model.SignalConfig{Waveform: model.WaveformRamp}

	plateau := src.Sample(cfg, start.Add(30*time.Second))
	dip := src.Sample(cfg, start.Add(36*time.Second+500*time.Millisecond))
	assert.InDelta(t, 1500, plateau, 10)
	assert.InDelta(t, 1200, dip, 10)
}

func TestSourceRoundsToTwoDecimals(t *testing.T) {
	src := NewSource(time.Now(), 3)
	for i := 0; i < 100; i++ {
		v, err := src.Read(model.SignalConfig{Waveform: model.WaveformSine}, time.Now())
		assert.NoError(t, err)
		assert.InDelta(t, math.Round(v*100)/100, v, 1e-9)
	}
}

func TestSourceRestart(t *testing.T) {
	start := time.Unix(0, 0)
	src := NewSource(start, 1)
	cfg := model.SignalConfig{Waveform: model.WaveformRamp}

	late := start.Add(10 * time.Second)
	assert.Greater(t, src.Sample(cfg, late), 900.0)

	src.Restart(late)
	assert.Less(t, src.Sample(cfg, late), 20.0)
}
