package pick

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmfigueroa/seisview/internal/dsp/bandpass"
)

// syntheticEvent builds a noise trace with a sudden 8 Hz arrival at onsetSec.
func syntheticEvent(fs float64, durSec, onsetSec float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	n := int(durSec * fs)
	onset := int(onsetSec * fs)

	out := make([]float64, n)
	for i := range out {
		out[i] = 0.02 * rng.NormFloat64()
		if i >= onset {
			decay := math.Exp(-float64(i-onset) / (5 * fs))
			out[i] += decay * math.Sin(2*math.Pi*8*float64(i)/fs)
		}
	}
	return out
}

func TestNewDetectorConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero sta", Config{STASec: 0, LTASec: 10, TriggerRatio: 3}, true},
		{"lta not longer than sta", Config{STASec: 5, LTASec: 5, TriggerRatio: 3}, true},
		{"ratio at unity", Config{STASec: 1, LTASec: 10, TriggerRatio: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetector(tt.cfg, bandpass.DefaultParams())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDetectFindsOnset(t *testing.T) {
	const fs = 100.0
	const onsetSec = 30.0
	trace := syntheticEvent(fs, 80, onsetSec, 1)

	det, err := NewDetector(DefaultConfig(), bandpass.DefaultParams())
	require.NoError(t, err)

	res, err := det.Detect(trace, fs)
	require.NoError(t, err)

	// The refined onset should land within a second of the true arrival.
	assert.InDelta(t, onsetSec, res.TimeSec, 1.0)
	assert.GreaterOrEqual(t, res.Ratio, DefaultConfig().TriggerRatio)
}

func TestDetectNoEvent(t *testing.T) {
	const fs = 100.0
	rng := rand.New(rand.NewSource(7))
	trace := make([]float64, int(60*fs))
	for i := range trace {
		trace[i] = 0.02 * rng.NormFloat64()
	}

	det, err := NewDetector(DefaultConfig(), bandpass.DefaultParams())
	require.NoError(t, err)

	_, err = det.Detect(trace, fs)
	assert.ErrorIs(t, err, ErrNoTrigger)
}

func TestDetectEmptySignal(t *testing.T) {
	det, err := NewDetector(DefaultConfig(), bandpass.DefaultParams())
	require.NoError(t, err)

	_, err = det.Detect(nil, 100)
	assert.ErrorIs(t, err, ErrEmptySignal)
}

func TestPreprocessLength(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"short trace is padded", 3000},
		{"exact length unchanged", targetLength},
		{"long trace is trimmed", 12000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace := syntheticEvent(100, float64(tt.n)/100, 5, 3)
			out, err := Preprocess(trace, 100, bandpass.DefaultParams())
			require.NoError(t, err)
			assert.LessOrEqual(t, len(out), targetLength)
			if tt.n <= targetLength {
				assert.Len(t, out, targetLength)
			}
		})
	}
}

func TestPreprocessNormalizesAmplitude(t *testing.T) {
	trace := syntheticEvent(100, 60, 20, 5)
	for i := range trace {
		trace[i] *= 1e6 // counts-scale input
	}

	out, err := Preprocess(trace, 100, bandpass.DefaultParams())
	require.NoError(t, err)

	var maxAmp float64
	for _, v := range out {
		if a := math.Abs(v); a > maxAmp {
			maxAmp = a
		}
	}
	// Unit peak before filtering; the filter and std rescaling keep the
	// result on the order of one.
	assert.Less(t, maxAmp, 10.0)
	assert.Greater(t, maxAmp, 0.01)
}

func TestComputeMetricsAroundPick(t *testing.T) {
	const fs = 100.0
	trace := syntheticEvent(fs, 80, 30, 11)
	pickIdx := int(30 * fs)

	m := ComputeMetrics(trace, pickIdx)

	require.NotNil(t, m.SNRDb)
	require.NotNil(t, m.EnergyRatio)
	require.NotNil(t, m.EnergyBefore)
	require.NotNil(t, m.EnergyAfter)

	// The arrival is far louder than the background noise.
	assert.Greater(t, *m.SNRDb, 10.0)
	assert.Greater(t, *m.EnergyRatio, 10.0)
	assert.Greater(t, *m.EnergyAfter, *m.EnergyBefore)
	assert.Greater(t, m.MaxAmplitude, 0.5)
}

func TestComputeMetricsNoPick(t *testing.T) {
	trace := syntheticEvent(100, 80, 30, 13)
	m := ComputeMetrics(trace, -1)

	assert.Nil(t, m.SNRDb)
	assert.Nil(t, m.EnergyRatio)
	assert.Greater(t, m.MaxAmplitude, 0.0)
}

func TestComputeMetricsSilentNoiseWindow(t *testing.T) {
	trace := make([]float64, 2000)
	for i := 1000; i < 2000; i++ {
		trace[i] = math.Sin(float64(i) / 10)
	}

	m := ComputeMetrics(trace, 1000)
	// Zero noise power: SNR undefined rather than +Inf.
	assert.Nil(t, m.SNRDb)
	assert.Nil(t, m.EnergyRatio)
	assert.NotNil(t, m.EnergyAfter)
}
