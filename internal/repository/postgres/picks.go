package postgres

import (
	"context"
	"database/sql"

	"github.com/jmfigueroa/seisview/internal/repository"
	"github.com/jmfigueroa/seisview/pkg/models"
)

// PostgresPickRepository implements PickRepository for PostgreSQL
type PostgresPickRepository struct {
	db *sql.DB
}

// NewPostgresPickRepository creates a new PostgreSQL pick repository
func NewPostgresPickRepository(db *sql.DB) repository.PickRepository {
	return &PostgresPickRepository{db: db}
}

// UpsertPick stores a catalog pick, replacing any previous pick for the event
func (r *PostgresPickRepository) UpsertPick(ctx context.Context, pick *models.CatalogPick) error {
	query := `
		INSERT INTO picks (id, event_id, p_arrival, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO UPDATE
		SET p_arrival = EXCLUDED.p_arrival, source = EXCLUDED.source`

	_, err := r.db.ExecContext(ctx, query,
		pick.ID,
		pick.EventID,
		pick.PArrival,
		pick.Source,
		pick.CreatedAt)

	return err
}

// GetByEventID retrieves the catalog pick for an event
func (r *PostgresPickRepository) GetByEventID(ctx context.Context, eventID int64) (*models.CatalogPick, error) {
	query := `
		SELECT id, event_id, p_arrival, source, created_at
		FROM picks
		WHERE event_id = $1`

	var pick models.CatalogPick
	var pArrival sql.NullTime

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&pick.ID,
		&pick.EventID,
		&pArrival,
		&pick.Source,
		&pick.CreatedAt)

	if err != nil {
		return nil, err
	}

	if pArrival.Valid {
		pick.PArrival = &pArrival.Time
	}

	return &pick, nil
}
