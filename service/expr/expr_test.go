package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalComparisons(t *testing.T) {
	cases := []struct {
		src  string
		val  float64
		want bool
	}{
		{"val > 1450", 1460, true},
		{"val > 1450", 1450, false},
		{"val > 1450", 1400, false},
		{"val >= 10", 10, true},
		{"val < -5", -6, true},
		{"val == 3", 3, true},
		{"val != 3", 3, false},
		{"val > 50 || val < 10", 5, true},
		{"val > 50 || val < 10", 30, false},
		{"val > 10 && val < 20", 15, true},
		{"abs(val) > 5", -7, true},
		{"abs(val - 100) <= 2", 101.5, true},
		{"max(val, 3) == 3", 1, true},
		{"min(val, 3, 7) < 2", 1, true},
		{"sqrt(val) > 3", 16, true},
		{"(val * 2 + 1) % 3 == 0", 4, true},
		{"!(val > 5)", 2, true},
		{"-val > 0", -1, true},
		{"val > 1e3", 1500, true},
		{"true", 0, true},
		{"val", 0, false},
	}
	for _, c := range cases {
		got, err := Eval(c.src, c.val)
		require.NoError(t, err, c.src)
		assert.Equal(t, c.want, got, "%s with val=%v", c.src, c.val)
	}
}

func TestContradictoryExpressionNeverHolds(t *testing.T) {
	p, err := Compile("val > 50 && val < 10")
	require.NoError(t, err)
	for v := -100.0; v <= 200; v += 0.5 {
		ok, err := p.Eval(v)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestCompileErrors(t *testing.T) {
	bad := []string{
		"val >>> ",
		"",
		"   ",
		"val >",
		"x > 3",
		"process.exit(1)",
		"val > 3)",
		"(val > 3",
		"abs(val, 2) > 1",
		"min() > 1",
		"val $ 3",
		"constructor > 1",
		strings.Repeat("(", 100) + "val" + strings.Repeat(")", 100),
		strings.Repeat("1+", 200) + "1",
	}
	for _, src := range bad {
		_, err := Compile(src)
		assert.Error(t, err, "%q should not compile", src)
	}
}

func TestNaNIsReported(t *testing.T) {
	p, err := Compile("sqrt(val)")
	require.NoError(t, err)
	ok, err := p.Eval(-1)
	assert.ErrorIs(t, err, ErrNaN)
	assert.False(t, ok)
}

func TestShortCircuit(t *testing.T) {
	p, err := Compile("val > 0 || sqrt(val) > 1")
	require.NoError(t, err)
	ok, err := p.Eval(-4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = p.Eval(4)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProgramString(t *testing.T) {
	p, err := Compile("val > 78")
	require.NoError(t, err)
	assert.Equal(t, "val > 78", p.String())
	assert.Equal(t, 1.0, p.Value(80))
}
