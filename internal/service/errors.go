package service

import (
	"errors"

	"medride/internal/routing"
)

var (
	// ErrInvalidAppointmentID is returned when appointment ID is empty.
	ErrInvalidAppointmentID = errors.New("invalid appointment id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidStatus is returned when a ride status is unknown.
	ErrInvalidStatus = errors.New("invalid ride status")

	// ErrInvalidRouteFigures is returned when distance or duration is negative.
	ErrInvalidRouteFigures = errors.New("invalid route distance or duration")

	// ErrInvalidWaitingMinutes is returned when waiting minutes are negative or not reported by the rider.
	ErrInvalidWaitingMinutes = errors.New("invalid waiting minutes")

	// ErrInvalidBooking is returned when a booking misses required fields.
	ErrInvalidBooking = errors.New("invalid booking")

	// ErrInvalidNotification is returned when a notification misses required fields.
	ErrInvalidNotification = errors.New("invalid notification")

	// ErrUnauthenticated is returned when the caller has no known profile.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotRider is returned when a non-rider tries to accept an appointment.
	ErrNotRider = errors.New("only riders can accept appointments")

	// ErrNotRideRider is returned when someone other than the assigned rider advances a ride.
	ErrNotRideRider = errors.New("only the assigned rider can advance the ride")

	// ErrNotRideParty is returned when the caller is neither the ride's rider nor its patient.
	ErrNotRideParty = errors.New("caller is not a party of this ride")

	// ErrNotAppointmentParty is returned when the caller may not act on an appointment.
	ErrNotAppointmentParty = errors.New("caller is not a party of this appointment")

	// ErrAppointmentAlreadyClaimed is returned when another rider already accepted the appointment.
	ErrAppointmentAlreadyClaimed = errors.New("appointment already claimed")

	// ErrAcceptInProgress is returned while another rider is quoting the same appointment.
	ErrAcceptInProgress = errors.New("appointment acceptance in progress")

	// ErrInvalidTransition is returned when the requested stage is not the immediate successor.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrCompletionRequiresQuorum is returned when completed is requested through a stage advance.
	ErrCompletionRequiresQuorum = errors.New("completion requires confirmation from every party")

	// ErrRideCancelled is returned when acting on a cancelled ride.
	ErrRideCancelled = errors.New("ride cancelled")

	// ErrRideCompleted is returned when advancing a completed ride.
	ErrRideCompleted = errors.New("ride already completed")

	// ErrRideChanged is returned when a conditional write finds the ride in another state.
	ErrRideChanged = errors.New("ride changed concurrently")

	// ErrAlreadyCancelled is returned when cancelling a cancelled appointment.
	ErrAlreadyCancelled = errors.New("appointment already cancelled")

	// ErrCannotCancel is returned when the appointment is in a state that cannot be cancelled.
	ErrCannotCancel = errors.New("appointment cannot be cancelled in current state")

	// ErrInvoiceNotReady is returned when the invoice of an unfinished ride is requested.
	ErrInvoiceNotReady = errors.New("invoice not ready")

	// ErrQuoteUnavailable is returned when no route estimate could be produced.
	ErrQuoteUnavailable = routing.ErrQuoteUnavailable
)
