package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/jmfigueroa/seisview/internal/dsp/bandpass"
	"github.com/jmfigueroa/seisview/internal/export"
	"github.com/jmfigueroa/seisview/internal/mseed"
	"github.com/jmfigueroa/seisview/internal/repository"
	"github.com/jmfigueroa/seisview/internal/storage"
	"github.com/jmfigueroa/seisview/pkg/models"
)

// ExportHandler renders processed traces for download
type ExportHandler struct {
	repo      repository.WaveformRepository
	s3Service storage.S3Service
}

// NewExportHandler creates a new export handler
func NewExportHandler(repo repository.WaveformRepository, s3Service storage.S3Service) *ExportHandler {
	return &ExportHandler{
		repo:      repo,
		s3Service: s3Service,
	}
}

// loadTrace fetches and decodes the MSEED file behind a waveform, then applies
// the requested bandpass.
func (h *ExportHandler) loadTrace(ctx context.Context, id string, params bandpass.Params) (*mseed.Trace, []float64, error) {
	waveformID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, huma.Error400BadRequest("Invalid waveform ID", err)
	}

	waveform, err := h.repo.GetByID(ctx, waveformID)
	if err != nil {
		return nil, nil, huma.Error404NotFound("Waveform not found", err)
	}
	if waveform.MseedS3Key == nil {
		return nil, nil, huma.Error409Conflict("Waveform has no uploaded MSEED file", nil)
	}

	data, err := h.s3Service.DownloadFile(ctx, *waveform.MseedS3Key)
	if err != nil {
		return nil, nil, huma.Error500InternalServerError("Failed to download MSEED file", err)
	}

	trace, err := mseed.Decode(data)
	if err != nil {
		return nil, nil, huma.Error422UnprocessableEntity("Failed to decode MSEED file", err)
	}

	filtered, err := bandpass.Apply(trace.Samples, trace.SampleRate, params)
	if err != nil {
		return nil, nil, huma.Error400BadRequest("Invalid filter parameters", err)
	}

	return trace, filtered, nil
}

// ExportCSV returns the raw and filtered trace as a CSV document
func (h *ExportHandler) ExportCSV(ctx context.Context, req *models.ExportCSVRequest) (*models.ExportCSVResponse, error) {
	params := bandpass.Params{LowHz: req.LowHz, HighHz: req.HighHz, Order: req.Order}

	trace, filtered, err := h.loadTrace(ctx, req.ID, params)
	if err != nil {
		return nil, err
	}

	body, err := export.WriteCSV(trace.Samples, filtered, trace.SampleRate)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render CSV", err)
	}

	return &models.ExportCSVResponse{
		ContentType: "text/csv",
		Body:        body,
	}, nil
}

// PlotPNG returns the raw and filtered trace as a PNG figure
func (h *ExportHandler) PlotPNG(ctx context.Context, req *models.PlotPNGRequest) (*models.PlotPNGResponse, error) {
	params := bandpass.Params{LowHz: req.LowHz, HighHz: req.HighHz, Order: req.Order}

	trace, filtered, err := h.loadTrace(ctx, req.ID, params)
	if err != nil {
		return nil, err
	}

	opts := export.PlotOptions{
		Title:      fmt.Sprintf("%s %s", trace.SourceID(), trace.StartTime.Format("2006-01-02 15:04:05")),
		SampleRate: trace.SampleRate,
	}

	// Mark the detected pick when results exist
	if waveformID, err := uuid.Parse(req.ID); err == nil {
		if results, err := h.repo.GetResults(ctx, waveformID); err == nil && results != nil {
			opts.PickTimeSec = results.PickTimeSec
		}
	}

	body, err := export.WritePNG(trace.Samples, filtered, opts)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to render plot", err)
	}

	return &models.PlotPNGResponse{
		ContentType: "image/png",
		Body:        body,
	}, nil
}
