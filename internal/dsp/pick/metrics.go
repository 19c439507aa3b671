package pick

import (
	"math"
)

// metricsWindow is the number of samples taken on each side of the pick for
// SNR and energy computation.
const metricsWindow = 500

// Metrics summarizes signal quality around a pick.
type Metrics struct {
	MaxAmplitude float64
	SNRDb        *float64 // nil when no pick or the noise window is silent
	EnergyBefore *float64
	EnergyAfter  *float64
	EnergyRatio  *float64
}

// ComputeMetrics derives quality metrics from a raw trace. pickIndex may be
// negative to indicate no pick, in which case only the maximum amplitude is
// reported.
func ComputeMetrics(samples []float64, pickIndex int) Metrics {
	var m Metrics
	for _, v := range samples {
		if a := math.Abs(v); a > m.MaxAmplitude {
			m.MaxAmplitude = a
		}
	}
	if pickIndex < 0 || pickIndex >= len(samples) {
		return m
	}

	noiseStart := pickIndex - metricsWindow
	if noiseStart < 0 {
		noiseStart = 0
	}
	signalEnd := pickIndex + metricsWindow
	if signalEnd > len(samples) {
		signalEnd = len(samples)
	}

	noise := samples[noiseStart:pickIndex]
	signal := samples[pickIndex:signalEnd]
	if len(noise) == 0 || len(signal) == 0 {
		return m
	}

	var noiseEnergy, signalEnergy float64
	for _, v := range noise {
		noiseEnergy += v * v
	}
	for _, v := range signal {
		signalEnergy += v * v
	}

	m.EnergyBefore = ptr(noiseEnergy)
	m.EnergyAfter = ptr(signalEnergy)

	noisePower := noiseEnergy / float64(len(noise))
	signalPower := signalEnergy / float64(len(signal))
	if noisePower > 0 {
		m.SNRDb = ptr(10 * math.Log10(signalPower/noisePower))
	}
	if noiseEnergy > 0 {
		m.EnergyRatio = ptr(signalEnergy / noiseEnergy)
	}
	return m
}

func ptr(v float64) *float64 { return &v }
