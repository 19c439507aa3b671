package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jmfigueroa/seisview/internal/catalog"
	"github.com/jmfigueroa/seisview/internal/repository"
	"github.com/jmfigueroa/seisview/pkg/models"
)

// CatalogHandler handles pick catalog HTTP requests
type CatalogHandler struct {
	picks     repository.PickRepository
	waveforms repository.WaveformRepository
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(picks repository.PickRepository, waveforms repository.WaveformRepository) *CatalogHandler {
	return &CatalogHandler{
		picks:     picks,
		waveforms: waveforms,
	}
}

// ImportCatalog parses an uploaded pick catalog CSV and stores its picks
func (h *CatalogHandler) ImportCatalog(ctx context.Context, req *models.ImportCatalogRequest) (*models.ImportCatalogResponse, error) {
	parsed, err := catalog.Parse(bytes.NewReader(req.RawBody))
	if err != nil {
		if errors.Is(err, catalog.ErrMissingColumns) {
			return nil, huma.Error400BadRequest("Catalog must have 'archivo' and 'lec_p' columns", err)
		}
		return nil, huma.Error400BadRequest("Failed to parse catalog CSV", err)
	}

	imported := 0
	for _, entry := range parsed.Entries {
		pick := &models.CatalogPick{
			ID:        uuid.New().String(),
			EventID:   entry.EventID,
			PArrival:  entry.PArrival,
			Source:    models.PickSourceCatalog,
			CreatedAt: time.Now(),
		}
		if err := h.picks.UpsertPick(ctx, pick); err != nil {
			return nil, huma.Error500InternalServerError("Failed to store catalog pick", err)
		}
		imported++
	}

	log.Info().Int("imported", imported).Int("missing", parsed.Missing).Int("skipped", parsed.Skipped).Msg("Catalog imported")

	resp := &models.ImportCatalogResponse{}
	resp.Body.Imported = imported
	resp.Body.Missing = parsed.Missing
	resp.Body.Skipped = parsed.Skipped
	return resp, nil
}

// ValidateCatalog checks stored picks against every completed waveform
func (h *CatalogHandler) ValidateCatalog(ctx context.Context, req *models.ValidateCatalogRequest) (*models.ValidateCatalogResponse, error) {
	waveforms, err := h.waveforms.ListCompleted(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list waveforms", err)
	}

	resp := &models.ValidateCatalogResponse{}
	resp.Body.Rows = []*models.PickValidation{}

	for _, waveform := range waveforms {
		waveformID, err := uuid.Parse(waveform.ID)
		if err != nil {
			continue
		}
		results, err := h.waveforms.GetResults(ctx, waveformID)
		if err != nil {
			continue
		}

		pick, err := h.picks.GetByEventID(ctx, waveform.EventID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, huma.Error500InternalServerError("Failed to look up catalog pick", err)
		}

		var pArrival *time.Time
		if pick != nil {
			pArrival = pick.PArrival
		}

		v := catalog.Validate(results.StartTime, results.DurationSec, pArrival)

		row := &models.PickValidation{
			EventID:     waveform.EventID,
			WaveformID:  waveform.ID,
			IsValid:     v.IsValid,
			HasPick:     v.HasPick,
			Note:        v.Note,
			SignalStart: float64(v.SignalStart.UnixNano()) / 1e9,
			SignalEnd:   float64(v.SignalEnd.UnixNano()) / 1e9,
			DurationSec: v.DurationSec,
			RelativeSec: v.RelativeSec,
		}
		if pArrival != nil {
			epoch := float64(pArrival.UnixNano()) / 1e9
			row.PArrival = &epoch
		}

		resp.Body.Total++
		switch {
		case !v.HasPick:
			resp.Body.NoPick++
		case v.IsValid:
			resp.Body.Valid++
		default:
			resp.Body.Invalid++
		}
		resp.Body.Rows = append(resp.Body.Rows, row)
	}

	return resp, nil
}
