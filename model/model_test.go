package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalConfigValidate(t *testing.T) {
	ok := SignalConfig{ID: "sig_1", Name: "Main Motor Speed", Type: Analog, Waveform: WaveformRamp}
	assert.NoError(t, ok.Validate())

	cases := map[string]SignalConfig{
		"empty id":     {Name: "x", Type: Analog},
		"empty name":   {ID: "a", Type: Analog},
		"bad type":     {ID: "a", Name: "x", Type: "STRING"},
		"bad waveform": {ID: "a", Name: "x", Type: Digital, Waveform: "square"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateConfigsRejectsDuplicates(t *testing.T) {
	a := SignalConfig{ID: "a", Name: "A", Type: Analog}
	b := SignalConfig{ID: "b", Name: "B", Type: Calculated}

	assert.NoError(t, ValidateConfigs([]SignalConfig{a, b}))
	assert.NoError(t, ValidateConfigs(nil))
	assert.ErrorIs(t, ValidateConfigs([]SignalConfig{a, b, a}), ErrDuplicateID)
}

func TestFloat(t *testing.T) {
	p, q := Float(1.5), Float(1.5)
	assert.Equal(t, 1.5, *p)
	assert.NotSame(t, p, q)
}
