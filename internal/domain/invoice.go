package domain

import (
	"time"

	"medride/internal/fare"
)

// Invoice is the billing summary of a ride shown to both parties.
type Invoice struct {
	AppointmentID   string
	RideID          string
	HospitalName    string
	HospitalAddress string
	PickupLocation  string
	AppointmentDate time.Time
	Patient         *Profile
	Rider           *Profile
	Status          RideStatus
	DistanceKm      float64
	DurationMinutes int
	WaitingMinutes  int
	Fare            fare.Breakdown
	CompletedAt     time.Time
	CreatedAt       time.Time
}
