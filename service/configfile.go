package service

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Go-routine-4595/iba-monitor/model"
)

// DefaultSignals is the built-in drive-train configuration used when no
// signal file is given.
func DefaultSignals() []model.SignalConfig {
	return []model.SignalConfig{
		{
			ID:            "sig_1",
			Name:          "Main Motor Speed",
			Unit:          "rpm",
			Type:          model.Analog,
			Waveform:      model.WaveformRamp,
			ThresholdHigh: model.Float(1450),
			Description:   "Primary drive shaft rotation speed",
			Expression:    "val > 1450",
		},
		{
			ID:            "sig_2",
			Name:          "Bearing Temp A",
			Unit:          "°C",
			Type:          model.Analog,
			Waveform:      model.WaveformSine,
			ThresholdHigh: model.Float(78),
			Description:   "Front bearing temperature monitoring",
			Expression:    "val > 78",
		},
		{
			ID:            "sig_3",
			Name:          "Shaft Vibration",
			Unit:          "mm/s",
			Type:          model.Analog,
			Waveform:      model.WaveformSpikyNoise,
			ThresholdHigh: model.Float(6.5),
			Description:   "Vibration sensor reading (RMS)",
			Expression:    "val > 6.5",
		},
		{
			ID:            "sig_4",
			Name:          "Drive Torque",
			Unit:          "Nm",
			Type:          model.Analog,
			Waveform:      model.WaveformCosine,
			ThresholdHigh: model.Float(510),
			Description:   "Output torque load",
			Expression:    "val > 510",
		},
	}
}

// LoadSignals reads a jsonl file, one SignalConfig per line. Blank lines are skipped.
func LoadSignals(path string) ([]model.SignalConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(err, errors.New("open signals file"))
	}
	defer f.Close()

	return ReadSignals(f)
}

func ReadSignals(r io.Reader) ([]model.SignalConfig, error) {
	var (
		configs []model.SignalConfig
		line    int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var item model.SignalConfig
		if err := json.Unmarshal(scanner.Bytes(), &item); err != nil {
			return nil, errors.Join(err, fmt.Errorf("signals line %d", line))
		}
		configs = append(configs, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := model.ValidateConfigs(configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// SaveSignals writes configs back in the jsonl layout LoadSignals reads.
func SaveSignals(path string, configs []model.SignalConfig) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Join(err, errors.New("create signals file"))
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, c := range configs {
		if err = enc.Encode(c); err != nil {
			break
		}
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return errors.Join(err, errors.New("write signals file"))
	}
	return os.Rename(tmp, path)
}
