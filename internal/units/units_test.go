package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNanolambertToMagnitude(t *testing.T) {
	m, err := NanolambertToMagnitude(1)
	require.NoError(t, err)
	assert.InDelta(t, 26.3308, m, 1e-12)

	m, err = NanolambertToMagnitude(100)
	require.NoError(t, err)
	assert.InDelta(t, 21.3308, m, 1e-12)
}

func TestNanolambertToMagnitudeDomain(t *testing.T) {
	for _, x := range []float64{0, -1, -9999, math.NaN(), math.Inf(1)} {
		_, err := NanolambertToMagnitude(x)
		require.ErrorIs(t, err, ErrDomain, "input %v", x)
	}
}

func TestMagnitudeFormulasDisagree(t *testing.T) {
	// close, but never equal: about 3e-4 relative across the usable range
	for _, m := range []float64{15, 21, 26.3308} {
		exp := MagnitudeToNanolambertExp(m)
		pow := MagnitudeToNanolambertPow10(m)
		rel := math.Abs(exp-pow) / pow
		assert.Greater(t, rel, 1e-4, "m=%v", m)
		assert.Less(t, rel, 1e-3, "m=%v", m)
	}
}

func TestPow10IsInverse(t *testing.T) {
	for _, nl := range []float64{0.5, 1, 42, 1e4} {
		m, err := NanolambertToMagnitude(nl)
		require.NoError(t, err)
		assert.InEpsilon(t, nl, MagnitudeToNanolambertPow10(m), 1e-12)
	}
}

func TestNanolambertToMicrocandela(t *testing.T) {
	assert.InDelta(t, 10/math.Pi, NanolambertToMicrocandela(1), 1e-15)
	assert.Less(t, NanolambertToMicrocandela(-2), NanolambertToMicrocandela(3))
}

func TestParseMagnitudeFormula(t *testing.T) {
	tests := []struct {
		in   string
		want MagnitudeFormula
		err  bool
	}{
		{"", FormulaUnset, false},
		{"exponential", FormulaExponential, false},
		{"pow10", FormulaPower, false},
		{"power", FormulaPower, false},
		{"linear", FormulaUnset, true},
	}
	for _, tt := range tests {
		got, err := ParseMagnitudeFormula(tt.in)
		if tt.err {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := FormulaUnset.ToNanolambert(20)
	require.Error(t, err)
	v, err := FormulaPower.ToNanolambert(26.3308)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-12)
}
