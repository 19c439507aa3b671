// Package spectrogram computes short-time Fourier transform power estimates
// of seismic traces for the analysis summary.
package spectrogram

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	maxSegmentLength = 256
	powerFloor       = 1e-10
)

// ErrTooShort indicates the trace cannot fill a single STFT segment.
var ErrTooShort = errors.New("spectrogram: trace too short")

// Spectrogram holds STFT power in dB over time and frequency.
type Spectrogram struct {
	Freqs   []float64   // bin center frequencies, Hz
	Times   []float64   // segment center times, seconds
	PowerDB [][]float64 // [segment][bin]

	SegmentLength int
	Overlap       int
}

// Summary condenses the spectrogram to its dominant spectral peak.
type Summary struct {
	SegmentLength  int
	Overlap        int
	NumSegments    int
	NumBins        int
	FreqResolution float64
	TimeResolution float64
	DominantFreqHz float64
	PeakPowerDB    float64
}

// Compute runs a Hann-windowed STFT with 50% overlap. The segment length is
// min(256, n/4) to keep time resolution sensible for short traces.
func Compute(samples []float64, sampleRate float64) (*Spectrogram, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectrogram: invalid sampling rate %g", sampleRate)
	}

	nperseg := maxSegmentLength
	if q := len(samples) / 4; q < nperseg {
		nperseg = q
	}
	if nperseg < 8 {
		return nil, fmt.Errorf("%w: %d samples", ErrTooShort, len(samples))
	}
	noverlap := nperseg / 2
	step := nperseg - noverlap

	win, err := window.Hann(nperseg)
	if err != nil {
		return nil, fmt.Errorf("spectrogram: window design: %w", err)
	}
	var winNorm float64
	for _, w := range win {
		winNorm += w * w
	}

	fft := fourier.NewFFT(nperseg)
	numBins := nperseg/2 + 1
	numSegments := (len(samples)-nperseg)/step + 1

	sg := &Spectrogram{
		Freqs:         make([]float64, numBins),
		Times:         make([]float64, numSegments),
		PowerDB:       make([][]float64, numSegments),
		SegmentLength: nperseg,
		Overlap:       noverlap,
	}
	for i := range sg.Freqs {
		sg.Freqs[i] = float64(i) * sampleRate / float64(nperseg)
	}

	buf := make([]float64, nperseg)
	for s := 0; s < numSegments; s++ {
		start := s * step
		sg.Times[s] = (float64(start) + float64(nperseg)/2) / sampleRate

		copy(buf, samples[start:start+nperseg])
		for i := range buf {
			buf[i] *= win[i]
		}

		coeffs := fft.Coefficients(nil, buf)
		row := make([]float64, numBins)
		for b := 0; b < numBins && b < len(coeffs); b++ {
			re, im := real(coeffs[b]), imag(coeffs[b])
			p := (re*re + im*im) / (winNorm * sampleRate)
			if p < powerFloor {
				p = powerFloor
			}
			row[b] = 10 * math.Log10(p)
		}
		sg.PowerDB[s] = row
	}

	return sg, nil
}

// Summarize locates the overall power peak.
func (sg *Spectrogram) Summarize(sampleRate float64) Summary {
	sum := Summary{
		SegmentLength:  sg.SegmentLength,
		Overlap:        sg.Overlap,
		NumSegments:    len(sg.Times),
		NumBins:        len(sg.Freqs),
		FreqResolution: sampleRate / float64(sg.SegmentLength),
		TimeResolution: float64(sg.SegmentLength-sg.Overlap) / sampleRate,
		PeakPowerDB:    math.Inf(-1),
	}
	for _, row := range sg.PowerDB {
		for b, p := range row {
			if p > sum.PeakPowerDB {
				sum.PeakPowerDB = p
				sum.DominantFreqHz = sg.Freqs[b]
			}
		}
	}
	return sum
}
