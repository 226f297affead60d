package service

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/Go-routine-4595/iba-monitor/model"
)

// Source simulates the data-acquisition backend. Every waveform is a function
// of the time elapsed since the source started plus random noise.
type Source struct {
	mu    sync.Mutex
	start time.Time
	rnd   *rand.Rand
}

func NewSource(start time.Time, seed int64) *Source {
	return &Source{
		start: start,
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

// Restart resets elapsed time, so ramps begin again from zero.
func (s *Source) Restart(start time.Time) {
	s.mu.Lock()
	s.start = start
	s.mu.Unlock()
}

// Sample produces the value of cfg at now, rounded to two decimals.
func (s *Source) Sample(cfg model.SignalConfig, now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := now.Sub(s.start).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	var val float64
	switch cfg.Waveform {
	case model.WaveformRamp:
		val = math.Min(1500, elapsed*100) + (s.rnd.Float64()*20 - 10)
		if int(math.Floor(elapsed))%20 > 15 {
			val -= 300
		}
	case model.WaveformSine:
		val = 60 + 20*math.Sin(elapsed*0.1) + s.rnd.Float64()
	case model.WaveformSpikyNoise:
		val = 2 + s.rnd.Float64()*3
		if s.rnd.Float64() > 0.98 {
			val += 5
		}
	case model.WaveformCosine:
		val = 400 + 100*math.Cos(elapsed*0.5) + s.rnd.Float64()*10
	default:
		val = s.rnd.Float64() * 100
	}

	return math.Round(val*100) / 100
}

// Read implements Sampler.
func (s *Source) Read(cfg model.SignalConfig, now time.Time) (float64, error) {
	return s.Sample(cfg, now), nil
}
