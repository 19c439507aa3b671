package models

import (
	"time"
)

// CatalogPick represents a P arrival read from a pick catalog CSV.
type CatalogPick struct {
	ID        string     `json:"id"`
	EventID   int64      `json:"event_id"`
	PArrival  *time.Time `json:"p_arrival,omitempty"`
	Source    string     `json:"source"`
	CreatedAt time.Time  `json:"created_at"`
}

// Pick source values.
const (
	PickSourceCatalog  = "catalog"
	PickSourceDetected = "detected"
)

// PickValidation is the outcome of checking a catalog pick against a trace.
type PickValidation struct {
	EventID     int64    `json:"event_id" doc:"Catalog event identifier"`
	WaveformID  string   `json:"waveform_id" doc:"Waveform ID"`
	IsValid     bool     `json:"is_valid" doc:"Whether the pick falls inside the trace"`
	HasPick     bool     `json:"has_pick" doc:"Whether the catalog has a P arrival for this event"`
	Note        string   `json:"note,omitempty" doc:"Validation error or informational note"`
	SignalStart float64  `json:"signal_start" doc:"Trace start, epoch seconds"`
	SignalEnd   float64  `json:"signal_end" doc:"Trace end, epoch seconds"`
	DurationSec float64  `json:"duration_sec" doc:"Trace duration in seconds"`
	PArrival    *float64 `json:"p_arrival,omitempty" doc:"Catalog P arrival, epoch seconds"`
	RelativeSec *float64 `json:"relative_sec,omitempty" doc:"P arrival relative to trace start, seconds"`
}

// ImportCatalogRequest represents a CSV pick catalog upload.
// The body is the raw CSV document with 'archivo' and 'lec_p' columns.
type ImportCatalogRequest struct {
	RawBody []byte `contentType:"text/csv"`
}

// ImportCatalogResponse summarizes a catalog import
type ImportCatalogResponse struct {
	Body struct {
		Imported int `json:"imported" doc:"Number of picks stored"`
		Missing  int `json:"missing" doc:"Rows with no usable P arrival"`
		Skipped  int `json:"skipped" doc:"Rows that could not be parsed"`
	}
}

// ValidateCatalogRequest represents a request to validate stored picks
// against every completed waveform.
type ValidateCatalogRequest struct{}

// ValidateCatalogResponse is the batch validation report
type ValidateCatalogResponse struct {
	Body struct {
		Total   int               `json:"total" doc:"Waveforms examined"`
		Valid   int               `json:"valid" doc:"Picks inside their trace window"`
		Invalid int               `json:"invalid" doc:"Picks outside their trace window"`
		NoPick  int               `json:"no_pick" doc:"Waveforms with no catalog pick"`
		Rows    []*PickValidation `json:"rows" doc:"Per-waveform validation detail"`
	}
}
