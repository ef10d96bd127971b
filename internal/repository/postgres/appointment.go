package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"medride/internal/domain"
	"medride/internal/repository"
)

// AppointmentRepository is a PostgreSQL implementation of repository.AppointmentRepository.
type AppointmentRepository struct {
	q Querier
}

// NewAppointmentRepository creates a new PostgreSQL appointment repository.
func NewAppointmentRepository(q Querier) *AppointmentRepository {
	return &AppointmentRepository{q: q}
}

const appointmentColumns = `id, patient_id, rider_id, hospital_name, hospital_address, appointment_date, estimated_duration, pickup_location, special_instructions, status, total_cost, created_at, updated_at`

type appointmentRow struct {
	ID                  string          `db:"id"`
	PatientID           string          `db:"patient_id"`
	RiderID             sql.NullString  `db:"rider_id"`
	HospitalName        string          `db:"hospital_name"`
	HospitalAddress     string          `db:"hospital_address"`
	AppointmentDate     time.Time       `db:"appointment_date"`
	EstimatedDuration   sql.NullString  `db:"estimated_duration"`
	PickupLocation      string          `db:"pickup_location"`
	SpecialInstructions sql.NullString  `db:"special_instructions"`
	Status              string          `db:"status"`
	TotalCost           sql.NullFloat64 `db:"total_cost"`
	CreatedAt           time.Time       `db:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

func (r appointmentRow) toDomain() *domain.Appointment {
	appt := &domain.Appointment{
		ID:                  r.ID,
		PatientID:           r.PatientID,
		RiderID:             r.RiderID.String,
		HospitalName:        r.HospitalName,
		HospitalAddress:     r.HospitalAddress,
		AppointmentDate:     r.AppointmentDate,
		EstimatedDuration:   r.EstimatedDuration.String,
		PickupLocation:      r.PickupLocation,
		SpecialInstructions: r.SpecialInstructions.String,
		Status:              domain.AppointmentStatus(r.Status),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.TotalCost.Valid {
		total := r.TotalCost.Float64
		appt.TotalCost = &total
	}
	return appt
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Create persists a new appointment.
func (r *AppointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		appt.ID,
		appt.PatientID,
		nullString(appt.RiderID),
		appt.HospitalName,
		appt.HospitalAddress,
		appt.AppointmentDate,
		nullString(appt.EstimatedDuration),
		appt.PickupLocation,
		nullString(appt.SpecialInstructions),
		appt.Status,
		nullFloat(appt.TotalCost),
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *AppointmentRepository) get(ctx context.Context, query string, args ...any) (*domain.Appointment, error) {
	var row appointmentRow
	if err := r.q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Appointment, error) {
	var rows []appointmentRow
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	appts := make([]*domain.Appointment, 0, len(rows))
	for _, row := range rows {
		appts = append(appts, row.toDomain())
	}
	return appts, nil
}

// GetByID retrieves an appointment by ID.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	return r.get(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
}

// GetForUpdate retrieves an appointment and locks its row.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, id string) (*domain.Appointment, error) {
	return r.get(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
}

// ListAvailable retrieves pending, unassigned appointments.
func (r *AppointmentRepository) ListAvailable(ctx context.Context, limit int) ([]*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'pending' AND rider_id IS NULL
		ORDER BY appointment_date ASC
		LIMIT $1
	`
	return r.list(ctx, query, limitOrDefault(limit))
}

// ListByPatient retrieves a patient's appointments.
func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, patientID, limitOrDefault(limit))
}

// ListByRider retrieves a rider's appointments.
func (r *AppointmentRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments WHERE rider_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.list(ctx, query, riderID, limitOrDefault(limit))
}

// ListAll retrieves all appointments.
func (r *AppointmentRepository) ListAll(ctx context.Context, limit int) ([]*domain.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.list(ctx, query, limitOrDefault(limit))
}

// Claim assigns a rider to a pending, unassigned appointment in one conditional statement.
func (r *AppointmentRepository) Claim(ctx context.Context, id, riderID string, totalCost float64, at time.Time) (*domain.Appointment, error) {
	query := `
		UPDATE appointments
		SET rider_id = $1, status = 'accepted', total_cost = $2, updated_at = $3
		WHERE id = $4 AND status = 'pending' AND rider_id IS NULL
		RETURNING ` + appointmentColumns

	appt, err := r.get(ctx, query, riderID, totalCost, at, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, conditionalMiss(ctx, r.q, "appointments", id)
	}
	return appt, err
}

// TransitionStatus sets the status only if the current status is one of from.
func (r *AppointmentRepository) TransitionStatus(ctx context.Context, id string, from []domain.AppointmentStatus, to domain.AppointmentStatus, at time.Time) error {
	query := `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status = ANY($4)
	`

	result, err := r.q.ExecContext(ctx, query, to, at, id, pq.Array(statusStrings(from)))
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return conditionalMiss(ctx, r.q, "appointments", id)
	}
	return nil
}

// Cancel moves the appointment to cancelled and unassigns it in one conditional write.
func (r *AppointmentRepository) Cancel(ctx context.Context, id string, from []domain.AppointmentStatus, at time.Time) error {
	query := `
		UPDATE appointments
		SET status = 'cancelled', rider_id = NULL, total_cost = NULL, updated_at = $1
		WHERE id = $2 AND status = ANY($3)
	`

	result, err := r.q.ExecContext(ctx, query, at, id, pq.Array(statusStrings(from)))
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return conditionalMiss(ctx, r.q, "appointments", id)
	}
	return nil
}

func statusStrings(statuses []domain.AppointmentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// SetTotalCost overwrites total_cost.
func (r *AppointmentRepository) SetTotalCost(ctx context.Context, id string, totalCost *float64, at time.Time) error {
	query := `UPDATE appointments SET total_cost = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, nullFloat(totalCost), at, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an appointment. Rides, timeline entries and earnings cascade.
func (r *AppointmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
