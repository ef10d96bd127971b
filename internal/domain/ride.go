package domain

import (
	"time"

	"medride/internal/fare"
)

// RideStatus represents the current stage of a ride.
type RideStatus string

const (
	RideStatusRequested     RideStatus = "requested"
	RideStatusAccepted      RideStatus = "accepted"
	RideStatusPickup        RideStatus = "pickup"
	RideStatusEnRoute       RideStatus = "en_route"
	RideStatusAtHospital    RideStatus = "at_hospital"
	RideStatusInAppointment RideStatus = "in_appointment"
	RideStatusReturning     RideStatus = "returning"
	RideStatusCompleted     RideStatus = "completed"
	RideStatusCancelled     RideStatus = "cancelled"
)

// stageOrder is the strict forward order of ride stages.
var stageOrder = []RideStatus{
	RideStatusRequested,
	RideStatusAccepted,
	RideStatusPickup,
	RideStatusEnRoute,
	RideStatusAtHospital,
	RideStatusInAppointment,
	RideStatusReturning,
	RideStatusCompleted,
}

// Stages returns the forward stage sequence.
func Stages() []RideStatus {
	out := make([]RideStatus, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// Index returns the position of s in the stage sequence, or -1 for cancelled/unknown.
func (s RideStatus) Index() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known ride status.
func (s RideStatus) Valid() bool {
	return s == RideStatusCancelled || s.Index() >= 0
}

// IsTerminal reports whether no further transitions are allowed.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// Next returns the immediate successor stage.
func (s RideStatus) Next() (RideStatus, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(stageOrder) {
		return "", false
	}
	return stageOrder[i+1], true
}

// CanAdvance reports whether a rider may move a ride from one stage to the next.
// Only the immediate successor is allowed and completed is reached through the completion quorum.
func CanAdvance(from, to RideStatus) bool {
	if from.IsTerminal() || to == RideStatusCompleted {
		return false
	}
	next, ok := from.Next()
	return ok && next == to
}

// Ride represents the operational trip record created once a rider accepts an appointment.
type Ride struct {
	ID              string
	AppointmentID   string
	PatientID       string
	RiderID         string
	Status          RideStatus
	DistanceKm      float64 // Round trip
	DurationMinutes int     // Round trip
	WaitingMinutes  int
	Fare            fare.Breakdown
	Completion      CompletionQuorum
	PatientNotes    string
	RiderNotes      string
	PickupTime      time.Time
	CompletionTime  time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PartyOf returns the ride party a user acts as.
func (r *Ride) PartyOf(userID string) (Party, bool) {
	switch userID {
	case r.RiderID:
		return PartyRider, true
	case r.PatientID:
		return PartyPatient, true
	default:
		return "", false
	}
}

// CompletionOutcome describes the effect of a completion confirmation.
type CompletionOutcome struct {
	Recorded  bool    // The party confirmed for the first time
	Finalized bool    // This confirmation completed the quorum
	Waiting   float64 // Waiting charge added by this confirmation
}

// CanComplete reports whether a ride at stage may be confirmed as completed.
// Completion is the successor of returning like every other stage.
func CanComplete(stage RideStatus) bool {
	return stage == RideStatusReturning
}

// ConfirmCompletion records a party's completion. Repeated confirmations are no-ops.
// Waiting minutes are owned by the rider and billed with the rider's first confirmation only.
func (r *Ride) ConfirmCompletion(party Party, at time.Time, waitingMinutes int) CompletionOutcome {
	if r.Status.IsTerminal() {
		return CompletionOutcome{}
	}

	if !r.Completion.Confirm(party, at) {
		return CompletionOutcome{}
	}

	outcome := CompletionOutcome{Recorded: true}
	if party == PartyRider && waitingMinutes > 0 {
		before := r.Fare.Total
		r.Fare = fare.AddWaiting(r.Fare, waitingMinutes)
		r.WaitingMinutes += waitingMinutes
		outcome.Waiting = fare.Round2(r.Fare.Total - before)
	}

	if r.Completion.Complete() {
		r.Status = RideStatusCompleted
		r.CompletionTime = at
		outcome.Finalized = true
	}
	r.UpdatedAt = at

	return outcome
}

// RiderCompleted reports whether the rider confirmed completion.
func (r *Ride) RiderCompleted() bool {
	return r.Completion.Has(PartyRider)
}

// PatientCompleted reports whether the patient confirmed completion.
func (r *Ride) PatientCompleted() bool {
	return r.Completion.Has(PartyPatient)
}
