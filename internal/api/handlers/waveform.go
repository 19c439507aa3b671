package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jmfigueroa/seisview/internal/processing"
	"github.com/jmfigueroa/seisview/internal/repository"
	"github.com/jmfigueroa/seisview/internal/storage"
	"github.com/jmfigueroa/seisview/pkg/models"
)

// WaveformHandler handles waveform-related HTTP requests
type WaveformHandler struct {
	repo          repository.WaveformRepository
	s3Service     storage.S3Service
	processingSvc processing.ProcessingService
}

// NewWaveformHandler creates a new waveform handler
func NewWaveformHandler(repo repository.WaveformRepository, s3Service storage.S3Service, processingSvc processing.ProcessingService) *WaveformHandler {
	return &WaveformHandler{
		repo:          repo,
		s3Service:     s3Service,
		processingSvc: processingSvc,
	}
}

// CreateWaveform registers a new waveform and returns an upload URL
func (h *WaveformHandler) CreateWaveform(ctx context.Context, req *models.CreateWaveformRequest) (*models.CreateWaveformResponse, error) {
	log.Info().Int64("eventID", req.Body.EventID).Int64("fileSize", req.Body.FileSize).Msg("Registering new waveform")

	waveformID := uuid.New()

	mseedKey := fmt.Sprintf("waveforms/%s.mseed", waveformID)

	uploadURL, err := h.s3Service.GenerateUploadURL(ctx, mseedKey, req.Body.MimeType)
	if err != nil {
		if strings.Contains(err.Error(), "invalid content type") {
			return nil, huma.Error400BadRequest("File format not supported. Upload a miniSEED file.", err)
		}
		return nil, huma.Error400BadRequest("Failed to prepare upload. Please try again.", err)
	}

	waveform := &models.Waveform{
		ID:         waveformID.String(),
		EventID:    req.Body.EventID,
		Station:    req.Body.Station,
		Status:     "pending",
		Progress:   0,
		MseedS3Key: &mseedKey,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := h.repo.Create(ctx, waveform); err != nil {
		return nil, huma.Error500InternalServerError("Failed to create waveform", err)
	}
	log.Info().Str("waveformID", waveform.ID).Str("mseedKey", mseedKey).Msg("Waveform registered")

	return &models.CreateWaveformResponse{
		Body: models.CreateWaveformResponseBody{
			ID:        waveform.ID,
			UploadURL: uploadURL,
			ExpiresIn: int((15 * time.Minute).Seconds()),
		},
	}, nil
}

// GetWaveformStatus returns the current status of a waveform analysis
func (h *WaveformHandler) GetWaveformStatus(ctx context.Context, req *models.GetWaveformStatusRequest) (*models.GetWaveformStatusResponse, error) {
	waveformID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid waveform ID", err)
	}

	waveform, err := h.repo.GetByID(ctx, waveformID)
	if err != nil {
		return nil, huma.Error404NotFound("Waveform not found", err)
	}

	message := h.generateStatusMessage(waveform.Status, waveform.Progress)

	var resultsID *string
	if waveform.Status == "completed" {
		results, err := h.repo.GetResults(ctx, waveformID)
		if err == nil && results != nil {
			resultsID = &results.ID
		}
	}

	return &models.GetWaveformStatusResponse{
		Body: models.GetWaveformStatusResponseBody{
			ID:        waveform.ID,
			Status:    waveform.Status,
			Progress:  waveform.Progress,
			Message:   message,
			ResultsID: resultsID,
		},
	}, nil
}

// GetWaveformResults returns the analysis results
func (h *WaveformHandler) GetWaveformResults(ctx context.Context, req *models.GetWaveformResultsRequest) (*models.GetWaveformResultsResponse, error) {
	waveformID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid waveform ID", err)
	}

	waveform, err := h.repo.GetByID(ctx, waveformID)
	if err != nil {
		return nil, huma.Error404NotFound("Waveform not found", err)
	}

	if waveform.Status != "completed" {
		return nil, huma.Error409Conflict("Waveform not yet processed",
			fmt.Errorf("waveform status is %s", waveform.Status))
	}

	results, err := h.repo.GetResults(ctx, waveformID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get results", err)
	}

	return &models.GetWaveformResultsResponse{
		Body: models.GetWaveformResultsResponseBody{
			ID:             results.ID,
			WaveformID:     results.WaveformID,
			StartTime:      results.StartTime,
			SampleRate:     results.SampleRate,
			NumSamples:     results.NumSamples,
			DurationSec:    results.DurationSec,
			PickTimeSec:    results.PickTimeSec,
			CatalogPickSec: results.CatalogPickSec,
			PickResidual:   results.PickResidual,
			SNRDb:          results.SNRDb,
			EnergyRatio:    results.EnergyRatio,
			MaxAmplitude:   results.MaxAmplitude,
			WaveletFeats:   results.WaveletFeats,
			Filter:         results.Filter,
			Spectrogram:    results.Spectrogram,
			CreatedAt:      results.CreatedAt,
		},
	}, nil
}

// StartProcessing starts processing an uploaded MSEED file
func (h *WaveformHandler) StartProcessing(ctx context.Context, req *models.StartProcessingRequest) (*models.StartProcessingResponse, error) {
	waveformID, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid waveform ID", err)
	}

	_, err = h.repo.GetByID(ctx, waveformID)
	if err != nil {
		return nil, huma.Error404NotFound("Waveform not found", err)
	}

	// Processing runs in the background; the client polls the status endpoint
	go func() {
		err := h.processingSvc.ProcessWaveform(context.Background(), waveformID)
		if err != nil {
			log.Error().Err(err).Str("waveformID", waveformID.String()).Msg("Processing failed")
			h.repo.UpdateError(context.Background(), waveformID, fmt.Sprintf("Processing failed: %v", err))
		}
	}()

	return &models.StartProcessingResponse{
		Body: struct {
			Message string `json:"message" doc:"Confirmation message"`
		}{
			Message: "Processing started successfully",
		},
	}, nil
}

// ListWaveforms returns the waveforms registered for a catalog event
func (h *WaveformHandler) ListWaveforms(ctx context.Context, req *models.ListWaveformsRequest) (*models.ListWaveformsResponse, error) {
	waveforms, err := h.repo.ListByEventID(ctx, req.EventID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list waveforms", err)
	}

	resp := &models.ListWaveformsResponse{}
	resp.Body.Waveforms = waveforms
	return resp, nil
}

// generateStatusMessage creates a human-readable status message
func (h *WaveformHandler) generateStatusMessage(status string, progress int) string {
	switch status {
	case "pending":
		return "Waveform queued for processing..."
	case "processing":
		if progress < 25 {
			return "Starting analysis..."
		} else if progress < 50 {
			return "Reading MSEED file..."
		} else if progress < 80 {
			return "Detecting P arrival..."
		} else {
			return "Computing signal metrics..."
		}
	case "completed":
		return "Analysis complete!"
	case "failed":
		return "Analysis failed. Please try again."
	default:
		return "Unknown status"
	}
}
