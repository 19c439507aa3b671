package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmfigueroa/seisview/internal/repository"
	"github.com/jmfigueroa/seisview/pkg/models"
)

// PostgresWaveformRepository implements WaveformRepository for PostgreSQL
type PostgresWaveformRepository struct {
	db *sql.DB
}

// NewPostgresWaveformRepository creates a new PostgreSQL waveform repository
func NewPostgresWaveformRepository(db *sql.DB) repository.WaveformRepository {
	return &PostgresWaveformRepository{db: db}
}

// Create inserts a new waveform record
func (r *PostgresWaveformRepository) Create(ctx context.Context, waveform *models.Waveform) error {
	query := `
		INSERT INTO waveforms (id, event_id, station, status, progress, mseed_s3_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		waveform.ID,
		waveform.EventID,
		waveform.Station,
		waveform.Status,
		waveform.Progress,
		waveform.MseedS3Key,
		waveform.CreatedAt,
		waveform.UpdatedAt)

	return err
}

// GetByID retrieves a waveform by ID
func (r *PostgresWaveformRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Waveform, error) {
	query := `
		SELECT id, event_id, station, status, progress, mseed_s3_key, error_message, created_at, updated_at, completed_at
		FROM waveforms
		WHERE id = $1`

	return scanWaveform(r.db.QueryRowContext(ctx, query, id))
}

// ListByEventID retrieves waveforms registered for a catalog event
func (r *PostgresWaveformRepository) ListByEventID(ctx context.Context, eventID int64) ([]*models.Waveform, error) {
	query := `
		SELECT id, event_id, station, status, progress, mseed_s3_key, error_message, created_at, updated_at, completed_at
		FROM waveforms
		WHERE event_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWaveforms(rows)
}

// ListCompleted retrieves all waveforms that finished processing
func (r *PostgresWaveformRepository) ListCompleted(ctx context.Context) ([]*models.Waveform, error) {
	query := `
		SELECT id, event_id, station, status, progress, mseed_s3_key, error_message, created_at, updated_at, completed_at
		FROM waveforms
		WHERE status = 'completed'
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWaveforms(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWaveform(row rowScanner) (*models.Waveform, error) {
	var waveform models.Waveform
	var station, mseedS3Key, errorMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&waveform.ID,
		&waveform.EventID,
		&station,
		&waveform.Status,
		&waveform.Progress,
		&mseedS3Key,
		&errorMsg,
		&waveform.CreatedAt,
		&waveform.UpdatedAt,
		&completedAt)

	if err != nil {
		return nil, err
	}

	if station.Valid {
		waveform.Station = station.String
	}
	if mseedS3Key.Valid {
		waveform.MseedS3Key = &mseedS3Key.String
	}
	if errorMsg.Valid {
		waveform.ErrorMsg = &errorMsg.String
	}
	if completedAt.Valid {
		waveform.CompletedAt = &completedAt.Time
	}

	return &waveform, nil
}

func collectWaveforms(rows *sql.Rows) ([]*models.Waveform, error) {
	var waveforms []*models.Waveform
	for rows.Next() {
		waveform, err := scanWaveform(rows)
		if err != nil {
			return nil, err
		}
		waveforms = append(waveforms, waveform)
	}
	return waveforms, rows.Err()
}

// UpdateStatus updates the status and progress of a waveform
func (r *PostgresWaveformRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	query := `
		UPDATE waveforms
		SET status = $1, progress = $2, updated_at = NOW(),
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END
		WHERE id = $3`

	_, err := r.db.ExecContext(ctx, query, status, progress, id)
	return err
}

// UpdateError updates the error message for a waveform
func (r *PostgresWaveformRepository) UpdateError(ctx context.Context, id uuid.UUID, errorMsg string) error {
	query := `
		UPDATE waveforms
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, errorMsg, id)
	return err
}

// StoreResults stores waveform analysis results
func (r *PostgresWaveformRepository) StoreResults(ctx context.Context, results *models.WaveformResults) error {
	waveletFeats, err := json.Marshal(results.WaveletFeats)
	if err != nil {
		return fmt.Errorf("failed to marshal wavelet features: %w", err)
	}

	filter, err := json.Marshal(results.Filter)
	if err != nil {
		return fmt.Errorf("failed to marshal filter params: %w", err)
	}

	var spectrogram []byte
	if results.Spectrogram != nil {
		spectrogram, err = json.Marshal(results.Spectrogram)
		if err != nil {
			return fmt.Errorf("failed to marshal spectrogram summary: %w", err)
		}
	}

	query := `
		INSERT INTO waveform_results (id, waveform_id, start_time, sample_rate, num_samples, duration_sec,
			pick_time_sec, catalog_pick_sec, pick_residual_sec, snr_db, energy_ratio, max_amplitude,
			wavelet_features, filter_params, spectrogram, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.db.ExecContext(ctx, query,
		results.ID,
		results.WaveformID,
		results.StartTime,
		results.SampleRate,
		results.NumSamples,
		results.DurationSec,
		results.PickTimeSec,
		results.CatalogPickSec,
		results.PickResidual,
		results.SNRDb,
		results.EnergyRatio,
		results.MaxAmplitude,
		string(waveletFeats),
		string(filter),
		nullableJSON(spectrogram),
		results.CreatedAt)

	return err
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// GetResults retrieves waveform analysis results
func (r *PostgresWaveformRepository) GetResults(ctx context.Context, waveformID uuid.UUID) (*models.WaveformResults, error) {
	query := `
		SELECT id, waveform_id, start_time, sample_rate, num_samples, duration_sec,
			pick_time_sec, catalog_pick_sec, pick_residual_sec, snr_db, energy_ratio, max_amplitude,
			wavelet_features, filter_params, spectrogram, created_at
		FROM waveform_results
		WHERE waveform_id = $1`

	var results models.WaveformResults
	var pickTime, catalogPick, residual, snr, energyRatio sql.NullFloat64
	var waveletStr, filterStr, spectrogramStr sql.NullString

	err := r.db.QueryRowContext(ctx, query, waveformID).Scan(
		&results.ID,
		&results.WaveformID,
		&results.StartTime,
		&results.SampleRate,
		&results.NumSamples,
		&results.DurationSec,
		&pickTime,
		&catalogPick,
		&residual,
		&snr,
		&energyRatio,
		&results.MaxAmplitude,
		&waveletStr,
		&filterStr,
		&spectrogramStr,
		&results.CreatedAt)

	if err != nil {
		return nil, err
	}

	if pickTime.Valid {
		results.PickTimeSec = &pickTime.Float64
	}
	if catalogPick.Valid {
		results.CatalogPickSec = &catalogPick.Float64
	}
	if residual.Valid {
		results.PickResidual = &residual.Float64
	}
	if snr.Valid {
		results.SNRDb = &snr.Float64
	}
	if energyRatio.Valid {
		results.EnergyRatio = &energyRatio.Float64
	}
	if waveletStr.Valid {
		var feats []float64
		if err := json.Unmarshal([]byte(waveletStr.String), &feats); err != nil {
			return nil, fmt.Errorf("failed to unmarshal wavelet features: %w", err)
		}
		results.WaveletFeats = feats
	}
	if filterStr.Valid {
		if err := json.Unmarshal([]byte(filterStr.String), &results.Filter); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filter params: %w", err)
		}
	}
	if spectrogramStr.Valid {
		var summary models.SpectrogramSummary
		if err := json.Unmarshal([]byte(spectrogramStr.String), &summary); err != nil {
			return nil, fmt.Errorf("failed to unmarshal spectrogram summary: %w", err)
		}
		results.Spectrogram = &summary
	}

	return &results, nil
}
