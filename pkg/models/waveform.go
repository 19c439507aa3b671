package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// CreateWaveformRequest represents a request to register a new waveform upload
type CreateWaveformRequest struct {
	Body struct {
		EventID  int64  `json:"event_id" minimum:"1" required:"true" doc:"Catalog event identifier (archivo)"`
		Station  string `json:"station,omitempty" maxLength:"16" doc:"Optional station label, e.g. 'CX.PB01..HHZ'"`
		FileSize int64  `json:"file_size" minimum:"512" maximum:"52428800" required:"true" doc:"MSEED file size in bytes"`
		MimeType string `json:"mime_type" enum:"application/vnd.fdsn.mseed,application/octet-stream" required:"true" doc:"MSEED file MIME type"`
	}
}

// CreateWaveformResponseBody is the body of the create waveform response
type CreateWaveformResponseBody struct {
	ID        string `json:"id" doc:"Waveform unique identifier"`
	UploadURL string `json:"upload_url" doc:"Pre-signed S3 URL for file upload"`
	ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
}

// CreateWaveformResponse represents the response from registering a waveform
type CreateWaveformResponse struct {
	Body CreateWaveformResponseBody
}

// GetWaveformStatusRequest represents a request to get waveform processing status
type GetWaveformStatusRequest struct {
	ID string `path:"id" doc:"Waveform ID"`
}

// GetWaveformStatusResponseBody is the body of the status response
type GetWaveformStatusResponseBody struct {
	ID        string  `json:"id" doc:"Waveform ID"`
	Status    string  `json:"status" enum:"pending,processing,completed,failed" doc:"Processing status"`
	Progress  int     `json:"progress" minimum:"0" maximum:"100" doc:"Processing progress percentage"`
	Message   string  `json:"message,omitempty" doc:"Human-readable status message"`
	ResultsID *string `json:"results_id,omitempty" doc:"Results ID when processing completes"`
}

// GetWaveformStatusResponse represents the current status of a waveform analysis
type GetWaveformStatusResponse struct {
	Body GetWaveformStatusResponseBody
}

// StartProcessingRequest represents a request to start processing an uploaded file
type StartProcessingRequest struct {
	ID string `path:"id" doc:"Waveform ID"`
}

// StartProcessingResponse represents the response from starting processing
type StartProcessingResponse struct {
	Body struct {
		Message string `json:"message" doc:"Confirmation message"`
	}
}

// ListWaveformsRequest represents a request to list waveforms for an event
type ListWaveformsRequest struct {
	EventID int64 `query:"event_id" minimum:"1" required:"true" doc:"Catalog event identifier"`
}

// ListWaveformsResponse represents the waveforms registered for an event
type ListWaveformsResponse struct {
	Body struct {
		Waveforms []*Waveform `json:"waveforms" doc:"Waveforms ordered by creation time, newest first"`
	}
}

// Waveform represents the core waveform entity (for internal use)
type Waveform struct {
	ID          string     `json:"id"`
	EventID     int64      `json:"event_id"`
	Station     string     `json:"station,omitempty"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	MseedS3Key  *string    `json:"mseed_s3_key,omitempty"`
	ErrorMsg    *string    `json:"error_message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
