// Package bandpass applies zero-phase Butterworth bandpass filtering to
// seismic traces. Sections are designed as highpass+lowpass biquad cascades
// and run forward-backward so the filter adds no phase delay to picked
// arrival times.
package bandpass

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design/pass"
)

var (
	// ErrEmptySignal indicates an empty input slice.
	ErrEmptySignal = errors.New("bandpass: empty input signal")
	// ErrBadSampleRate indicates a non-positive sampling frequency.
	ErrBadSampleRate = errors.New("bandpass: sampling frequency must be positive")
	// ErrBadOrder indicates a filter order below 1.
	ErrBadOrder = errors.New("bandpass: filter order must be at least 1")
	// ErrBadCutoffs indicates cutoff frequencies outside (0, Nyquist) or
	// low >= high.
	ErrBadCutoffs = errors.New("bandpass: invalid cutoff frequencies")
)

// Params holds the bandpass configuration.
type Params struct {
	LowHz  float64
	HighHz float64
	Order  int
}

// DefaultParams returns the standard teleseismic P-wave band.
func DefaultParams() Params {
	return Params{LowHz: 1.0, HighHz: 20.0, Order: 4}
}

// Validate checks the parameters against the sampling frequency and returns
// the effective cutoffs, clamped to [0.001, 0.99] of Nyquist.
func (p Params) Validate(sampleRate float64) (lowHz, highHz float64, err error) {
	if sampleRate <= 0 {
		return 0, 0, fmt.Errorf("%w: got %g", ErrBadSampleRate, sampleRate)
	}
	if p.Order < 1 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrBadOrder, p.Order)
	}
	if p.LowHz <= 0 || p.HighHz <= 0 {
		return 0, 0, fmt.Errorf("%w: cutoffs must be positive, got low=%g high=%g",
			ErrBadCutoffs, p.LowHz, p.HighHz)
	}

	nyq := 0.5 * sampleRate
	if p.LowHz >= nyq || p.HighHz >= nyq {
		return 0, 0, fmt.Errorf("%w: cutoffs must be below Nyquist (%g Hz)", ErrBadCutoffs, nyq)
	}

	lowHz = clamp(p.LowHz, 0.001*nyq, 0.99*nyq)
	highHz = clamp(p.HighHz, 0.001*nyq, 0.99*nyq)
	if lowHz >= highHz {
		return 0, 0, fmt.Errorf("%w: low cutoff must be less than high cutoff, got %gHz and %gHz",
			ErrBadCutoffs, p.LowHz, p.HighHz)
	}
	return lowHz, highHz, nil
}

// Apply filters samples through a zero-phase Butterworth bandpass and
// rescales the output so its standard deviation matches the input. The input
// slice is not modified.
func Apply(samples []float64, sampleRate float64, p Params) ([]float64, error) {
	if len(samples) == 0 {
		return nil, ErrEmptySignal
	}
	low, high, err := p.Validate(sampleRate)
	if err != nil {
		return nil, err
	}

	sections := pass.ButterworthHP(low, p.Order, sampleRate)
	sections = append(sections, pass.ButterworthLP(high, p.Order, sampleRate)...)
	chain := biquad.NewChain(sections)

	out := make([]float64, len(samples))
	copy(out, samples)

	// Forward-backward pass: run, reverse, run again with cleared state,
	// reverse back. Phase responses cancel; the effective magnitude response
	// is squared.
	chain.ProcessBlock(out)
	reverse(out)
	chain.Reset()
	chain.ProcessBlock(out)
	reverse(out)

	rescale(out, samples)
	return out, nil
}

// rescale matches the output standard deviation to the input so filtered
// traces plot on the same amplitude scale as the raw data.
func rescale(out, in []float64) {
	inStd := stddev(in)
	if inStd == 0 {
		return
	}
	outStd := stddev(out)
	if outStd == 0 {
		return
	}
	k := inStd / outStd
	for i := range out {
		out[i] *= k
	}
}

func stddev(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var mean float64
	for _, v := range x {
		mean += v
	}
	mean /= float64(len(x))

	var variance float64
	for _, v := range x {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(x)))
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
