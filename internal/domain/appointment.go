package domain

import "time"

// AppointmentStatus represents the lifecycle status of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending    AppointmentStatus = "pending"
	AppointmentStatusAccepted   AppointmentStatus = "accepted"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
)

// Appointment represents a patient's request for transport to a medical visit.
type Appointment struct {
	ID                  string
	PatientID           string
	RiderID             string // Empty until accepted
	HospitalName        string
	HospitalAddress     string
	AppointmentDate     time.Time
	EstimatedDuration   string
	PickupLocation      string
	SpecialInstructions string
	Status              AppointmentStatus
	TotalCost           *float64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsCancellable reports whether the appointment can still be cancelled.
func (a *Appointment) IsCancellable() bool {
	switch a.Status {
	case AppointmentStatusPending, AppointmentStatusAccepted, AppointmentStatusInProgress:
		return true
	default:
		return false
	}
}

// IsClaimable reports whether a rider can still accept the appointment.
func (a *Appointment) IsClaimable() bool {
	return a.Status == AppointmentStatusPending && a.RiderID == ""
}
