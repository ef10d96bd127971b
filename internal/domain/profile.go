package domain

import "time"

// Role represents the role of a profile.
type Role string

const (
	RolePatient Role = "patient"
	RoleRider   Role = "rider"
	RoleAdmin   Role = "admin"
)

// Profile represents a user of the system (patient, rider or admin).
type Profile struct {
	ID                string
	Role              Role
	FullName          string
	Phone             string
	Address           string
	EmergencyContact  string
	MedicalConditions string
	Rating            float64
	TotalRides        int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
