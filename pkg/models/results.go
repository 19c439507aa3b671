package models

import (
	"time"
)

// FilterParams holds the Butterworth bandpass configuration used for an analysis.
type FilterParams struct {
	LowHz  float64 `json:"low_hz" doc:"Lower cutoff frequency in Hz"`
	HighHz float64 `json:"high_hz" doc:"Upper cutoff frequency in Hz"`
	Order  int     `json:"order" doc:"Filter order"`
}

// SpectrogramSummary condenses the STFT of a trace into a few headline numbers.
type SpectrogramSummary struct {
	SegmentLength  int     `json:"segment_length" doc:"STFT segment length in samples"`
	Overlap        int     `json:"overlap" doc:"Segment overlap in samples"`
	NumSegments    int     `json:"num_segments" doc:"Number of time segments"`
	NumBins        int     `json:"num_bins" doc:"Number of frequency bins"`
	FreqResolution float64 `json:"freq_resolution" doc:"Frequency bin width in Hz"`
	TimeResolution float64 `json:"time_resolution" doc:"Segment spacing in seconds"`
	DominantFreqHz float64 `json:"dominant_freq_hz" doc:"Frequency of the overall power peak in Hz"`
	PeakPowerDB    float64 `json:"peak_power_db" doc:"Overall power peak in dB"`
}

// WaveformResults represents the stored analysis results for a waveform.
type WaveformResults struct {
	ID             string              `json:"id"`
	WaveformID     string              `json:"waveform_id"`
	StartTime      time.Time           `json:"start_time"`
	SampleRate     float64             `json:"sample_rate"`
	NumSamples     int                 `json:"num_samples"`
	DurationSec    float64             `json:"duration_sec"`
	PickTimeSec    *float64            `json:"pick_time_sec,omitempty"`
	CatalogPickSec *float64            `json:"catalog_pick_sec,omitempty"`
	PickResidual   *float64            `json:"pick_residual_sec,omitempty"`
	SNRDb          *float64            `json:"snr_db,omitempty"`
	EnergyRatio    *float64            `json:"energy_ratio,omitempty"`
	MaxAmplitude   float64             `json:"max_amplitude"`
	WaveletFeats   []float64           `json:"wavelet_features,omitempty"`
	Filter         FilterParams        `json:"filter"`
	Spectrogram    *SpectrogramSummary `json:"spectrogram,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// GetWaveformResultsRequest represents a request to get analysis results
type GetWaveformResultsRequest struct {
	ID string `path:"id" doc:"Waveform ID"`
}

// GetWaveformResultsResponseBody is the body of the results response
type GetWaveformResultsResponseBody struct {
	ID             string              `json:"id" doc:"Results ID"`
	WaveformID     string              `json:"waveform_id" doc:"Waveform ID"`
	StartTime      time.Time           `json:"start_time" doc:"Trace start time (UTC)"`
	SampleRate     float64             `json:"sample_rate" doc:"Sampling rate in Hz"`
	NumSamples     int                 `json:"num_samples" doc:"Number of samples in the trace"`
	DurationSec    float64             `json:"duration_sec" doc:"Trace duration in seconds"`
	PickTimeSec    *float64            `json:"pick_time_sec,omitempty" doc:"Detected P arrival relative to trace start, seconds"`
	CatalogPickSec *float64            `json:"catalog_pick_sec,omitempty" doc:"Catalog P arrival relative to trace start, seconds"`
	PickResidual   *float64            `json:"pick_residual_sec,omitempty" doc:"Detected minus catalog pick, seconds"`
	SNRDb          *float64            `json:"snr_db,omitempty" doc:"Signal-to-noise ratio around the pick in dB"`
	EnergyRatio    *float64            `json:"energy_ratio,omitempty" doc:"Post-pick to pre-pick energy ratio"`
	MaxAmplitude   float64             `json:"max_amplitude" doc:"Maximum absolute amplitude of the raw trace"`
	WaveletFeats   []float64           `json:"wavelet_features,omitempty" doc:"60-element Daubechies-4 feature vector"`
	Filter         FilterParams        `json:"filter" doc:"Bandpass parameters used"`
	Spectrogram    *SpectrogramSummary `json:"spectrogram,omitempty" doc:"STFT summary"`
	CreatedAt      time.Time           `json:"created_at" doc:"Results creation timestamp"`
}

// GetWaveformResultsResponse represents the complete analysis results
type GetWaveformResultsResponse struct {
	Body GetWaveformResultsResponseBody
}

// ExportCSVRequest represents a request for the filtered-trace CSV export
type ExportCSVRequest struct {
	ID     string  `path:"id" doc:"Waveform ID"`
	LowHz  float64 `query:"low_hz" default:"1.0" doc:"Lower cutoff frequency in Hz"`
	HighHz float64 `query:"high_hz" default:"20.0" doc:"Upper cutoff frequency in Hz"`
	Order  int     `query:"order" default:"4" minimum:"1" maximum:"10" doc:"Filter order"`
}

// ExportCSVResponse carries the rendered CSV document
type ExportCSVResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// PlotPNGRequest represents a request for the waveform plot image
type PlotPNGRequest struct {
	ID     string  `path:"id" doc:"Waveform ID"`
	LowHz  float64 `query:"low_hz" default:"1.0" doc:"Lower cutoff frequency in Hz"`
	HighHz float64 `query:"high_hz" default:"20.0" doc:"Upper cutoff frequency in Hz"`
	Order  int     `query:"order" default:"4" minimum:"1" maximum:"10" doc:"Filter order"`
}

// PlotPNGResponse carries the rendered PNG image
type PlotPNGResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}
