package service

import (
	"context"
	"errors"
	"time"

	"medride/internal/domain"
	"medride/internal/repository"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

// canReadRide reports whether the actor may see a ride.
func (a Actor) canReadRide(ride *domain.Ride) bool {
	if a.IsAdmin() {
		return true
	}
	_, ok := ride.PartyOf(a.UserID)
	return ok
}

// canReadAppointment reports whether the actor may see an appointment.
func (a Actor) canReadAppointment(appt *domain.Appointment) bool {
	switch {
	case a.IsAdmin():
		return true
	case a.UserID == appt.PatientID:
		return true
	case appt.RiderID != "" && a.UserID == appt.RiderID:
		return true
	case a.Role == domain.RoleRider && appt.IsClaimable():
		return true
	default:
		return false
	}
}

// Clock returns the current time.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// isNotFound reports whether err is repository.ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// loadRideForRead fetches a ride and checks the actor may see it.
func loadRideForRead(ctx context.Context, rides repository.RideRepository, rideID string, actor Actor) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	ride, err := rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !actor.canReadRide(ride) {
		return nil, ErrNotRideParty
	}
	return ride, nil
}
