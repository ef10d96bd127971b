package postgres

import (
	"context"
	"database/sql"
	"time"

	"medride/internal/domain"
)

// EarningRepository is a PostgreSQL implementation of repository.EarningRepository.
type EarningRepository struct {
	q Querier
}

// NewEarningRepository creates a new PostgreSQL earning repository.
func NewEarningRepository(q Querier) *EarningRepository {
	return &EarningRepository{q: q}
}

type earningRow struct {
	ID            string       `db:"id"`
	RiderID       string       `db:"rider_id"`
	RideID        string       `db:"ride_id"`
	Amount        float64      `db:"amount"`
	Commission    float64      `db:"commission"`
	NetAmount     float64      `db:"net_amount"`
	PaymentStatus string       `db:"payment_status"`
	PaidAt        sql.NullTime `db:"paid_at"`
	CreatedAt     time.Time    `db:"created_at"`
}

// Create persists a new earning.
func (r *EarningRepository) Create(ctx context.Context, e *domain.Earning) error {
	query := `
		INSERT INTO earnings (id, rider_id, ride_id, amount, commission, net_amount, payment_status, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		e.ID,
		e.RiderID,
		e.RideID,
		e.Amount,
		e.Commission,
		e.NetAmount,
		e.PaymentStatus,
		nullTime(e.PaidAt),
		e.CreatedAt,
	)
	return mapWriteError(err)
}

// ListByRider retrieves a rider's earnings.
func (r *EarningRepository) ListByRider(ctx context.Context, riderID string) ([]*domain.Earning, error) {
	query := `
		SELECT id, rider_id, ride_id, amount, commission, net_amount, payment_status, paid_at, created_at
		FROM earnings WHERE rider_id = $1
		ORDER BY created_at DESC
	`

	var rows []earningRow
	if err := r.q.SelectContext(ctx, &rows, query, riderID); err != nil {
		return nil, err
	}

	out := make([]*domain.Earning, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.Earning{
			ID:            row.ID,
			RiderID:       row.RiderID,
			RideID:        row.RideID,
			Amount:        row.Amount,
			Commission:    row.Commission,
			NetAmount:     row.NetAmount,
			PaymentStatus: domain.EarningStatus(row.PaymentStatus),
			PaidAt:        row.PaidAt.Time,
			CreatedAt:     row.CreatedAt,
		})
	}
	return out, nil
}
