// Package pick detects P-wave arrivals with a recursive STA/LTA trigger on
// preprocessed traces and derives the quality metrics and wavelet feature
// vector stored with analysis results.
package pick

import (
	"errors"
	"fmt"
	"math"

	"github.com/jmfigueroa/seisview/internal/dsp/bandpass"
)

const targetLength = 8000

var (
	// ErrEmptySignal indicates an empty input trace.
	ErrEmptySignal = errors.New("pick: empty input signal")
	// ErrNoTrigger indicates the characteristic function never crossed the
	// trigger threshold.
	ErrNoTrigger = errors.New("pick: no STA/LTA trigger")
	// ErrBadConfig indicates invalid detector windows or threshold.
	ErrBadConfig = errors.New("pick: invalid detector configuration")
)

// Config holds STA/LTA detector settings.
type Config struct {
	STASec       float64 // short-term average window, seconds
	LTASec       float64 // long-term average window, seconds
	TriggerRatio float64 // STA/LTA ratio that declares an onset
}

// DefaultConfig returns detector settings suited to local-event records
// sampled around 100 Hz.
func DefaultConfig() Config {
	return Config{STASec: 1.0, LTASec: 10.0, TriggerRatio: 3.0}
}

// Result is a detected P arrival.
type Result struct {
	Index   int     // sample index of the onset in the preprocessed trace
	TimeSec float64 // onset relative to trace start, seconds
	Ratio   float64 // STA/LTA value at the trigger
}

// Detector picks P arrivals on preprocessed traces.
type Detector struct {
	cfg    Config
	filter bandpass.Params
}

// NewDetector returns a detector with the given STA/LTA settings. Traces are
// preprocessed with the supplied bandpass before triggering.
func NewDetector(cfg Config, filter bandpass.Params) (*Detector, error) {
	if cfg.STASec <= 0 || cfg.LTASec <= cfg.STASec || cfg.TriggerRatio <= 1 {
		return nil, fmt.Errorf("%w: sta=%gs lta=%gs ratio=%g",
			ErrBadConfig, cfg.STASec, cfg.LTASec, cfg.TriggerRatio)
	}
	return &Detector{cfg: cfg, filter: filter}, nil
}

// Detect preprocesses samples and returns the first P onset.
func (d *Detector) Detect(samples []float64, sampleRate float64) (*Result, error) {
	prepped, err := Preprocess(samples, sampleRate, d.filter)
	if err != nil {
		return nil, err
	}
	return d.trigger(prepped, sampleRate)
}

// trigger runs the recursive STA/LTA over the squared trace.
func (d *Detector) trigger(x []float64, sampleRate float64) (*Result, error) {
	nsta := int(d.cfg.STASec * sampleRate)
	nlta := int(d.cfg.LTASec * sampleRate)
	if nsta < 1 {
		nsta = 1
	}
	if nlta <= nsta {
		nlta = nsta + 1
	}
	if len(x) <= nlta {
		return nil, fmt.Errorf("%w: trace shorter than LTA window (%d <= %d samples)",
			ErrNoTrigger, len(x), nlta)
	}

	alphaSTA := 1.0 / float64(nsta)
	alphaLTA := 1.0 / float64(nlta)

	ratios := make([]float64, len(x))
	var sta, lta float64
	for i, v := range x {
		e := v * v
		sta += alphaSTA * (e - sta)
		lta += alphaLTA * (e - lta)
		if i < nlta {
			continue // LTA not yet stabilized
		}
		if lta > 0 {
			ratios[i] = sta / lta
		}
	}

	for i := nlta; i < len(ratios); i++ {
		if ratios[i] < d.cfg.TriggerRatio {
			continue
		}
		onset := refineOnset(ratios, i)
		return &Result{
			Index:   onset,
			TimeSec: float64(onset) / sampleRate,
			Ratio:   ratios[i],
		}, nil
	}
	return nil, ErrNoTrigger
}

// refineOnset walks back from the trigger index to where the characteristic
// function last crossed unity, which sits much closer to the true onset than
// the threshold crossing itself.
func refineOnset(ratios []float64, trigger int) int {
	i := trigger
	for i > 0 && ratios[i] > 1 {
		i--
	}
	if i == trigger {
		return trigger
	}
	return i + 1
}

// Preprocess prepares a raw trace for triggering and feature extraction:
// remove the DC offset, normalize to unit peak amplitude, bandpass, and pad
// or trim to the fixed analysis length.
func Preprocess(samples []float64, sampleRate float64, filter bandpass.Params) ([]float64, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}

	x := make([]float64, len(samples))
	var mean float64
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))
	for i, v := range samples {
		x[i] = v - mean
	}

	var maxAmp float64
	for _, v := range x {
		if a := math.Abs(v); a > maxAmp {
			maxAmp = a
		}
	}
	if maxAmp > 0 {
		for i := range x {
			x[i] /= maxAmp
		}
	}

	filtered, err := bandpass.Apply(x, sampleRate, filter)
	if err != nil {
		return nil, err
	}

	return padOrTrim(filtered, targetLength), nil
}

// padOrTrim fixes the trace length. Long traces are cut at the zero crossing
// nearest the target so a wave is not split mid-cycle; short traces are
// edge-padded to avoid discontinuities.
func padOrTrim(x []float64, target int) []float64 {
	n := len(x)
	switch {
	case n > target:
		cut := target
		if zc := nearestZeroCrossing(x, target); zc > 0 && zc <= target {
			cut = zc
		}
		out := make([]float64, cut)
		copy(out, x[:cut])
		return out

	case n < target:
		out := make([]float64, target)
		copy(out, x)
		edge := x[n-1]
		for i := n; i < target; i++ {
			out[i] = edge
		}
		return out
	}
	return x
}

// nearestZeroCrossing returns the sign-change index closest to target, or -1
// when the trace never crosses zero.
func nearestZeroCrossing(x []float64, target int) int {
	best := -1
	bestDist := math.MaxInt
	for i := 1; i < len(x); i++ {
		if math.Signbit(x[i]) == math.Signbit(x[i-1]) {
			continue
		}
		dist := i - target
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}
