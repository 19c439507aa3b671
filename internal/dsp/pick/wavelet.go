package pick

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// FeatureCount is the fixed length of the wavelet feature vector.
const FeatureCount = 60

const waveletLevels = 5

// Daubechies-4 decomposition filters.
var (
	db4Lo = []float64{
		-0.010597401784997278, 0.032883011666982945,
		0.030841381835986965, -0.18703481171888114,
		-0.02798376941698385, 0.6308807679295904,
		0.7148465705525415, 0.23037781330885523,
	}
	db4Hi = []float64{
		-0.23037781330885523, 0.7148465705525415,
		-0.6308807679295904, -0.02798376941698385,
		0.18703481171888114, 0.030841381835986965,
		-0.032883011666982945, -0.010597401784997278,
	}
)

// WaveletFeatures computes the 60-element Daubechies-4 feature vector for a
// preprocessed trace: a 5-level decomposition with ten statistics per
// sub-band plus spectral mean/max for detail bands, padded or truncated to
// the fixed length.
func WaveletFeatures(samples []float64) []float64 {
	bands := wavedec(samples, waveletLevels)

	features := make([]float64, 0, FeatureCount+16)
	for i, band := range bands {
		features = append(features, bandStats(band)...)
		if i < len(bands)-1 {
			// Spectral features for detail coefficients only; the final
			// band is the level-1 detail, kept to match training order.
			features = append(features, spectralFeatures(band)...)
		}
	}

	if len(features) < FeatureCount {
		padded := make([]float64, FeatureCount)
		copy(padded, features)
		return padded
	}
	return features[:FeatureCount]
}

// wavedec performs a multilevel DWT and returns bands ordered
// [cA_n, cD_n, ..., cD_1], matching the usual pyramid layout.
func wavedec(x []float64, levels int) [][]float64 {
	bands := make([][]float64, 0, levels+1)
	approx := x
	for l := 0; l < levels; l++ {
		if len(approx) < 2 {
			break
		}
		a, d := dwtStep(approx)
		bands = append(bands, d)
		approx = a
	}
	bands = append(bands, approx)

	// Reverse into coarse-to-fine order.
	for i, j := 0, len(bands)-1; i < j; i, j = i+1, j-1 {
		bands[i], bands[j] = bands[j], bands[i]
	}
	return bands
}

// dwtStep convolves with the analysis filters under symmetric extension and
// downsamples by two.
func dwtStep(x []float64) (approx, detail []float64) {
	n := len(x)
	flen := len(db4Lo)
	outLen := (n + flen - 1) / 2

	approx = make([]float64, outLen)
	detail = make([]float64, outLen)

	for i := 0; i < outLen; i++ {
		var a, d float64
		base := 2*i + 1
		for k := 0; k < flen; k++ {
			v := symmetricAt(x, base-k)
			a += db4Lo[flen-1-k] * v
			d += db4Hi[flen-1-k] * v
		}
		approx[i] = a
		detail[i] = d
	}
	return approx, detail
}

// symmetricAt indexes x with half-sample symmetric boundary extension.
func symmetricAt(x []float64, i int) float64 {
	n := len(x)
	if n == 1 {
		return x[0]
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return x[i]
}

// bandStats returns the ten per-band statistics.
func bandStats(band []float64) []float64 {
	if len(band) == 0 {
		return make([]float64, 10)
	}

	var sum, sumAbs, sumSq float64
	maxV := band[0]
	minV := band[0]
	for _, v := range band {
		sum += v
		sumAbs += math.Abs(v)
		sumSq += v * v
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	n := float64(len(band))
	mean := sum / n

	var variance float64
	for _, v := range band {
		variance += (v - mean) * (v - mean)
	}
	variance /= n

	sorted := append([]float64(nil), band...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)

	return []float64{
		mean,
		math.Sqrt(variance),
		maxV,
		minV,
		median,
		sumAbs,            // L1 norm
		math.Sqrt(sumSq),  // L2 norm
		sumAbs / n,        // mean absolute value
		variance,
		p75,
	}
}

// spectralFeatures returns the mean and max magnitude of the band's
// half-spectrum.
func spectralFeatures(band []float64) []float64 {
	if len(band) < 2 {
		return []float64{0, 0}
	}

	fft := fourier.NewFFT(len(band))
	coeffs := fft.Coefficients(nil, band)

	half := len(band) / 2
	if half > len(coeffs) {
		half = len(coeffs)
	}

	var sum, maxMag float64
	for i := 0; i < half; i++ {
		mag := cmplxAbs(coeffs[i])
		sum += mag
		if mag > maxMag {
			maxMag = mag
		}
	}
	if half == 0 {
		return []float64{0, 0}
	}
	return []float64{sum / float64(half), maxMag}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
