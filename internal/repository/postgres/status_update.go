package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"medride/internal/domain"
)

// StatusUpdateRepository is a PostgreSQL implementation of repository.StatusUpdateRepository.
type StatusUpdateRepository struct {
	q Querier
}

// NewStatusUpdateRepository creates a new PostgreSQL status update repository.
func NewStatusUpdateRepository(q Querier) *StatusUpdateRepository {
	return &StatusUpdateRepository{q: q}
}

type statusUpdateRow struct {
	ID        string         `db:"id"`
	RideID    string         `db:"ride_id"`
	Seq       int64          `db:"seq"`
	Status    string         `db:"status"`
	Notes     sql.NullString `db:"notes"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r statusUpdateRow) toDomain() *domain.StatusUpdate {
	return &domain.StatusUpdate{
		ID:        r.ID,
		RideID:    r.RideID,
		Seq:       r.Seq,
		Status:    domain.RideStatus(r.Status),
		Notes:     r.Notes.String,
		CreatedAt: r.CreatedAt,
	}
}

// Append persists a status update; seq comes from the table's sequence.
func (r *StatusUpdateRepository) Append(ctx context.Context, update *domain.StatusUpdate) error {
	query := `
		INSERT INTO ride_status_updates (id, ride_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`

	return r.q.GetContext(ctx, &update.Seq, query,
		update.ID,
		update.RideID,
		update.Status,
		nullString(update.Notes),
		update.CreatedAt,
	)
}

// ListByRide retrieves a ride's timeline in order.
func (r *StatusUpdateRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.StatusUpdate, error) {
	query := `
		SELECT id, ride_id, seq, status, notes, created_at
		FROM ride_status_updates WHERE ride_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	var rows []statusUpdateRow
	if err := r.q.SelectContext(ctx, &rows, query, rideID); err != nil {
		return nil, err
	}

	updates := make([]*domain.StatusUpdate, 0, len(rows))
	for _, row := range rows {
		updates = append(updates, row.toDomain())
	}
	return updates, nil
}

// Latest retrieves the most recent update of a ride. Returns nil if there is none.
func (r *StatusUpdateRepository) Latest(ctx context.Context, rideID string) (*domain.StatusUpdate, error) {
	query := `
		SELECT id, ride_id, seq, status, notes, created_at
		FROM ride_status_updates WHERE ride_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`

	var row statusUpdateRow
	if err := r.q.GetContext(ctx, &row, query, rideID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}
