package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmfigueroa/seisview/pkg/models"
)

// WaveformRepository defines the interface for waveform data operations
type WaveformRepository interface {
	Create(ctx context.Context, waveform *models.Waveform) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Waveform, error)
	ListByEventID(ctx context.Context, eventID int64) ([]*models.Waveform, error)
	ListCompleted(ctx context.Context) ([]*models.Waveform, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error
	StoreResults(ctx context.Context, results *models.WaveformResults) error
	GetResults(ctx context.Context, waveformID uuid.UUID) (*models.WaveformResults, error)
}

// PickRepository defines the interface for catalog pick operations
type PickRepository interface {
	UpsertPick(ctx context.Context, pick *models.CatalogPick) error
	GetByEventID(ctx context.Context, eventID int64) (*models.CatalogPick, error)
}
