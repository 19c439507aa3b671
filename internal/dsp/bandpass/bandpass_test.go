package bandpass

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, fs float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / fs)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		fs      float64
		wantErr error
	}{
		{"defaults ok", DefaultParams(), 100, nil},
		{"zero sample rate", DefaultParams(), 0, ErrBadSampleRate},
		{"negative sample rate", DefaultParams(), -10, ErrBadSampleRate},
		{"order zero", Params{LowHz: 1, HighHz: 20, Order: 0}, 100, ErrBadOrder},
		{"negative low cutoff", Params{LowHz: -1, HighHz: 20, Order: 4}, 100, ErrBadCutoffs},
		{"zero high cutoff", Params{LowHz: 1, HighHz: 0, Order: 4}, 100, ErrBadCutoffs},
		{"low above nyquist", Params{LowHz: 60, HighHz: 70, Order: 4}, 100, ErrBadCutoffs},
		{"high above nyquist", Params{LowHz: 1, HighHz: 50, Order: 4}, 100, ErrBadCutoffs},
		{"low equals high", Params{LowHz: 10, HighHz: 10, Order: 4}, 100, ErrBadCutoffs},
		{"inverted band", Params{LowHz: 20, HighHz: 5, Order: 4}, 100, ErrBadCutoffs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.params.Validate(tt.fs)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateClampsCutoffs(t *testing.T) {
	// 0.04 Hz is below 0.001*Nyquist for fs=100; it must be pulled up, not
	// rejected.
	low, high, err := Params{LowHz: 0.04, HighHz: 20, Order: 4}.Validate(100)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, low, 1e-12)
	assert.InDelta(t, 20.0, high, 1e-12)
}

func TestApplyEmptySignal(t *testing.T) {
	_, err := Apply(nil, 100, DefaultParams())
	assert.ErrorIs(t, err, ErrEmptySignal)
}

func TestApplyPreservesLength(t *testing.T) {
	in := sine(5, 100, 1024)
	out, err := Apply(in, 100, DefaultParams())
	require.NoError(t, err)
	assert.Len(t, out, len(in))
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	in := sine(5, 100, 512)
	orig := append([]float64(nil), in...)
	_, err := Apply(in, 100, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, orig, in)
}

func TestApplyRemovesOutOfBandComponent(t *testing.T) {
	const fs = 200.0
	n := 4096
	inBand := sine(5, fs, n)
	outBand := sine(60, fs, n)

	mixed := make([]float64, n)
	for i := range mixed {
		mixed[i] = inBand[i] + outBand[i]
	}

	filtered, err := Apply(mixed, fs, DefaultParams())
	require.NoError(t, err)

	// The filtered trace should be dominated by the 5 Hz component: its
	// normalized correlation with the in-band reference must be high, and
	// with the 60 Hz reference near zero. Edges are skipped to avoid filter
	// transients.
	lo, hi := n/8, 7*n/8
	corrIn := correlation(filtered[lo:hi], inBand[lo:hi])
	corrOut := correlation(filtered[lo:hi], outBand[lo:hi])

	assert.Greater(t, math.Abs(corrIn), 0.95)
	assert.Less(t, math.Abs(corrOut), 0.1)
}

func TestApplyZeroPhase(t *testing.T) {
	const fs = 100.0
	n := 2048
	// A Gaussian-windowed 8 Hz burst centered mid-trace. Zero-phase
	// filtering must not move the envelope peak.
	center := n / 2
	in := make([]float64, n)
	for i := range in {
		tt := float64(i-center) / fs
		in[i] = math.Exp(-tt*tt/0.5) * math.Sin(2*math.Pi*8*float64(i)/fs)
	}

	out, err := Apply(in, fs, DefaultParams())
	require.NoError(t, err)

	peakIn := argMaxAbs(in)
	peakOut := argMaxAbs(out)
	assert.InDelta(t, float64(peakIn), float64(peakOut), 3)
}

func TestApplyConstantSignal(t *testing.T) {
	in := make([]float64, 512)
	for i := range in {
		in[i] = 42
	}
	out, err := Apply(in, 100, DefaultParams())
	require.NoError(t, err)

	// DC is outside the band; with zero input variance rescaling is skipped
	// and the output stays near zero.
	for i := len(out) / 4; i < 3*len(out)/4; i++ {
		assert.InDelta(t, 0, out[i], 1e-6)
	}
}

func TestApplyMatchesInputStd(t *testing.T) {
	in := sine(5, 100, 2048)
	out, err := Apply(in, 100, DefaultParams())
	require.NoError(t, err)
	assert.InDelta(t, stddev(in), stddev(out), 1e-9)
}

func correlation(a, b []float64) float64 {
	var sab, saa, sbb float64
	for i := range a {
		sab += a[i] * b[i]
		saa += a[i] * a[i]
		sbb += b[i] * b[i]
	}
	if saa == 0 || sbb == 0 {
		return 0
	}
	return sab / math.Sqrt(saa*sbb)
}

func argMaxAbs(x []float64) int {
	best, idx := 0.0, 0
	for i, v := range x {
		if math.Abs(v) > best {
			best = math.Abs(v)
			idx = i
		}
	}
	return idx
}
