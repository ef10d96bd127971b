package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"medride/internal/domain"
	"medride/internal/fare"
	"medride/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(q Querier) *RideRepository {
	return &RideRepository{q: q}
}

const rideColumns = `id, appointment_id, patient_id, rider_id, status, distance_km, duration_minutes, waiting_minutes, base_fare, distance_fare, time_fare, assistance_fee, waiting_fare, total_fare, patient_notes, rider_notes, pickup_time, completion_time, created_at, updated_at`

type rideRow struct {
	ID              string         `db:"id"`
	AppointmentID   string         `db:"appointment_id"`
	PatientID       string         `db:"patient_id"`
	RiderID         string         `db:"rider_id"`
	Status          string         `db:"status"`
	DistanceKm      float64        `db:"distance_km"`
	DurationMinutes int            `db:"duration_minutes"`
	WaitingMinutes  int            `db:"waiting_minutes"`
	BaseFare        float64        `db:"base_fare"`
	DistanceFare    float64        `db:"distance_fare"`
	TimeFare        float64        `db:"time_fare"`
	AssistanceFee   float64        `db:"assistance_fee"`
	WaitingFare     float64        `db:"waiting_fare"`
	TotalFare       float64        `db:"total_fare"`
	PatientNotes    sql.NullString `db:"patient_notes"`
	RiderNotes      sql.NullString `db:"rider_notes"`
	PickupTime      sql.NullTime   `db:"pickup_time"`
	CompletionTime  sql.NullTime   `db:"completion_time"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r rideRow) toDomain() *domain.Ride {
	return &domain.Ride{
		ID:              r.ID,
		AppointmentID:   r.AppointmentID,
		PatientID:       r.PatientID,
		RiderID:         r.RiderID,
		Status:          domain.RideStatus(r.Status),
		DistanceKm:      r.DistanceKm,
		DurationMinutes: r.DurationMinutes,
		WaitingMinutes:  r.WaitingMinutes,
		Fare: fare.Breakdown{
			BaseFare:      r.BaseFare,
			DistanceFare:  r.DistanceFare,
			TimeFare:      r.TimeFare,
			AssistanceFee: r.AssistanceFee,
			WaitingFare:   r.WaitingFare,
			Total:         r.TotalFare,
		},
		Completion:     domain.NewCompletionQuorum(),
		PatientNotes:   r.PatientNotes.String,
		RiderNotes:     r.RiderNotes.String,
		PickupTime:     r.PickupTime.Time,
		CompletionTime: r.CompletionTime.Time,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type completionRow struct {
	RideID      string    `db:"ride_id"`
	Party       string    `db:"party"`
	CompletedAt time.Time `db:"completed_at"`
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.AppointmentID,
		ride.PatientID,
		ride.RiderID,
		ride.Status,
		ride.DistanceKm,
		ride.DurationMinutes,
		ride.WaitingMinutes,
		ride.Fare.BaseFare,
		ride.Fare.DistanceFare,
		ride.Fare.TimeFare,
		ride.Fare.AssistanceFee,
		ride.Fare.WaitingFare,
		ride.Fare.Total,
		nullString(ride.PatientNotes),
		nullString(ride.RiderNotes),
		nullTime(ride.PickupTime),
		nullTime(ride.CompletionTime),
		ride.CreatedAt,
		ride.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *RideRepository) get(ctx context.Context, query string, arg any) (*domain.Ride, error) {
	var row rideRow
	if err := r.q.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	ride := row.toDomain()
	if err := r.loadCompletions(ctx, []*domain.Ride{ride}); err != nil {
		return nil, err
	}
	return ride, nil
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	var rows []rideRow
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	rides := make([]*domain.Ride, 0, len(rows))
	for _, row := range rows {
		rides = append(rides, row.toDomain())
	}
	if err := r.loadCompletions(ctx, rides); err != nil {
		return nil, err
	}
	return rides, nil
}

// loadCompletions fills the completion quorum of each ride with one query.
func (r *RideRepository) loadCompletions(ctx context.Context, rides []*domain.Ride) error {
	if len(rides) == 0 {
		return nil
	}

	ids := make([]string, 0, len(rides))
	byID := make(map[string]*domain.Ride, len(rides))
	for _, ride := range rides {
		ids = append(ids, ride.ID)
		byID[ride.ID] = ride
	}

	var rows []completionRow
	query := `SELECT ride_id, party, completed_at FROM ride_completions WHERE ride_id = ANY($1)`
	if err := r.q.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return err
	}
	for _, row := range rows {
		if ride, ok := byID[row.RideID]; ok {
			ride.Completion.Confirm(domain.Party(row.Party), row.CompletedAt)
		}
	}
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
}

// GetForUpdate retrieves a ride and locks its row.
func (r *RideRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1 FOR UPDATE`, id)
}

// GetByAppointmentID retrieves the ride of an appointment.
func (r *RideRepository) GetByAppointmentID(ctx context.Context, appointmentID string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE appointment_id = $1`, appointmentID)
}

// GetByAppointmentIDForUpdate retrieves and locks the ride of an appointment.
func (r *RideRepository) GetByAppointmentIDForUpdate(ctx context.Context, appointmentID string) (*domain.Ride, error) {
	return r.get(ctx, `SELECT `+rideColumns+` FROM rides WHERE appointment_id = $1 FOR UPDATE`, appointmentID)
}

// ListByUser retrieves rides where the user is rider or patient.
func (r *RideRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides WHERE rider_id = $1 OR patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limitOrDefault(limit))
}

// ListAll retrieves all rides.
func (r *RideRepository) ListAll(ctx context.Context, limit int) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limitOrDefault(limit))
}

// Update writes the mutable ride fields if the stored status still equals expected.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride, expected domain.RideStatus) error {
	query := `
		UPDATE rides
		SET status = $1, waiting_minutes = $2, waiting_fare = $3, total_fare = $4,
			patient_notes = $5, rider_notes = $6, pickup_time = $7, completion_time = $8, updated_at = $9
		WHERE id = $10 AND status = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		ride.Status,
		ride.WaitingMinutes,
		ride.Fare.WaitingFare,
		ride.Fare.Total,
		nullString(ride.PatientNotes),
		nullString(ride.RiderNotes),
		nullTime(ride.PickupTime),
		nullTime(ride.CompletionTime),
		ride.UpdatedAt,
		ride.ID,
		expected,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return conditionalMiss(ctx, r.q, "rides", ride.ID)
	}
	return nil
}

// AddCompletion records a party's completion. The primary key makes repeats no-ops.
func (r *RideRepository) AddCompletion(ctx context.Context, rideID string, party domain.Party, at time.Time) (bool, error) {
	query := `
		INSERT INTO ride_completions (ride_id, party, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (ride_id, party) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query, rideID, party, at)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}
