package repository

import (
	"context"
	"time"

	"medride/internal/domain"
)

// AppointmentRepository defines the persistence operations for appointments.
type AppointmentRepository interface {
	// Create persists a new appointment.
	Create(ctx context.Context, appt *domain.Appointment) error

	// GetByID retrieves an appointment by ID.
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)

	// GetForUpdate retrieves an appointment and locks its row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Appointment, error)

	// ListAvailable retrieves pending, unassigned appointments ordered by appointment date.
	ListAvailable(ctx context.Context, limit int) ([]*domain.Appointment, error)

	// ListByPatient retrieves a patient's appointments, newest first.
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*domain.Appointment, error)

	// ListByRider retrieves the appointments assigned to a rider, newest first.
	ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Appointment, error)

	// ListAll retrieves all appointments, newest first.
	ListAll(ctx context.Context, limit int) ([]*domain.Appointment, error)

	// Claim assigns riderID to the appointment only if it is still pending and unassigned.
	// Returns ErrConflict when the predicate no longer holds.
	Claim(ctx context.Context, id, riderID string, totalCost float64, at time.Time) (*domain.Appointment, error)

	// TransitionStatus sets the status only if the current status is one of from.
	// Returns ErrConflict when it is not.
	TransitionStatus(ctx context.Context, id string, from []domain.AppointmentStatus, to domain.AppointmentStatus, at time.Time) error

	// Cancel sets the status to cancelled and clears rider_id and total_cost,
	// only if the current status is one of from. Returns ErrConflict when it is not.
	Cancel(ctx context.Context, id string, from []domain.AppointmentStatus, at time.Time) error

	// SetTotalCost overwrites total_cost; nil clears it.
	SetTotalCost(ctx context.Context, id string, totalCost *float64, at time.Time) error

	// Delete removes an appointment and everything hanging off it.
	Delete(ctx context.Context, id string) error
}
