package repository

import (
	"context"
	"time"

	"medride/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride. Returns ErrConflict if the appointment already has a ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID, including its completion quorum.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetForUpdate retrieves a ride and locks its row for the rest of the transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// GetByAppointmentID retrieves the ride of an appointment.
	GetByAppointmentID(ctx context.Context, appointmentID string) (*domain.Ride, error)

	// GetByAppointmentIDForUpdate retrieves and locks the ride of an appointment.
	GetByAppointmentIDForUpdate(ctx context.Context, appointmentID string) (*domain.Ride, error)

	// ListByUser retrieves rides where the user is rider or patient, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Ride, error)

	// ListAll retrieves all rides, newest first.
	ListAll(ctx context.Context, limit int) ([]*domain.Ride, error)

	// Update writes the mutable ride fields only if the stored status equals expected.
	// Returns ErrConflict when it does not.
	Update(ctx context.Context, ride *domain.Ride, expected domain.RideStatus) error

	// AddCompletion records a party's completion and reports whether it was new.
	AddCompletion(ctx context.Context, rideID string, party domain.Party, at time.Time) (bool, error)
}
