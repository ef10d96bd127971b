package handler

import (
	"time"

	"medride/internal/domain"
	"medride/internal/fare"
	"medride/internal/service"
)

// AppointmentResponse is the HTTP representation of an appointment.
type AppointmentResponse struct {
	ID                  string     `json:"id"`
	PatientID           string     `json:"patient_id"`
	RiderID             string     `json:"rider_id,omitempty"`
	HospitalName        string     `json:"hospital_name"`
	HospitalAddress     string     `json:"hospital_address"`
	AppointmentDate     time.Time  `json:"appointment_date"`
	EstimatedDuration   string     `json:"estimated_duration,omitempty"`
	PickupLocation      string     `json:"pickup_location"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	Status              string     `json:"status"`
	TotalCost           *float64   `json:"total_cost"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID               string         `json:"id"`
	AppointmentID    string         `json:"appointment_id"`
	PatientID        string         `json:"patient_id"`
	RiderID          string         `json:"rider_id"`
	Status           string         `json:"status"`
	DistanceKm       float64        `json:"distance_km"`
	DurationMinutes  int            `json:"duration_minutes"`
	WaitingMinutes   int            `json:"waiting_minutes"`
	Fare             fare.Breakdown `json:"fare"`
	RiderCompleted   bool           `json:"rider_completed"`
	PatientCompleted bool           `json:"patient_completed"`
	PatientNotes     string         `json:"patient_notes,omitempty"`
	RiderNotes       string         `json:"rider_notes,omitempty"`
	PickupTime       *time.Time     `json:"pickup_time,omitempty"`
	CompletionTime   *time.Time     `json:"completion_time,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// StatusUpdateResponse is one timeline entry.
type StatusUpdateResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationResponse is the HTTP representation of a notification.
type NotificationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// EarningResponse is the HTTP representation of a rider earning.
type EarningResponse struct {
	ID            string     `json:"id"`
	RideID        string     `json:"ride_id"`
	Amount        float64    `json:"amount"`
	Commission    float64    `json:"commission"`
	NetAmount     float64    `json:"net_amount"`
	PaymentStatus string     `json:"payment_status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// QuoteResponse is a priced round-trip estimate.
type QuoteResponse struct {
	AppointmentID         string         `json:"appointment_id"`
	OneWayDistanceKm      float64        `json:"one_way_distance_km"`
	OneWayDurationMinutes float64        `json:"one_way_duration_minutes"`
	DistanceKm            float64        `json:"distance_km"`
	DurationMinutes       int            `json:"duration_minutes"`
	Fare                  fare.Breakdown `json:"fare"`
}

// InvoiceResponse is the HTTP representation of an invoice.
type InvoiceResponse struct {
	AppointmentID   string         `json:"appointment_id"`
	RideID          string         `json:"ride_id"`
	HospitalName    string         `json:"hospital_name"`
	HospitalAddress string         `json:"hospital_address"`
	PickupLocation  string         `json:"pickup_location"`
	AppointmentDate time.Time      `json:"appointment_date"`
	PatientName     string         `json:"patient_name"`
	RiderName       string         `json:"rider_name"`
	DistanceKm      float64        `json:"distance_km"`
	DurationMinutes int            `json:"duration_minutes"`
	WaitingMinutes  int            `json:"waiting_minutes"`
	Fare            fare.Breakdown `json:"fare"`
	CompletedAt     time.Time      `json:"completed_at"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toAppointmentResponse(a *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                  a.ID,
		PatientID:           a.PatientID,
		RiderID:             a.RiderID,
		HospitalName:        a.HospitalName,
		HospitalAddress:     a.HospitalAddress,
		AppointmentDate:     a.AppointmentDate,
		EstimatedDuration:   a.EstimatedDuration,
		PickupLocation:      a.PickupLocation,
		SpecialInstructions: a.SpecialInstructions,
		Status:              string(a.Status),
		TotalCost:           a.TotalCost,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           timePtr(a.UpdatedAt),
	}
}

func toAppointmentList(list []*domain.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		ID:               r.ID,
		AppointmentID:    r.AppointmentID,
		PatientID:        r.PatientID,
		RiderID:          r.RiderID,
		Status:           string(r.Status),
		DistanceKm:       r.DistanceKm,
		DurationMinutes:  r.DurationMinutes,
		WaitingMinutes:   r.WaitingMinutes,
		Fare:             r.Fare,
		RiderCompleted:   r.Completion.Has(domain.PartyRider),
		PatientCompleted: r.Completion.Has(domain.PartyPatient),
		PatientNotes:     r.PatientNotes,
		RiderNotes:       r.RiderNotes,
		PickupTime:       timePtr(r.PickupTime),
		CompletionTime:   timePtr(r.CompletionTime),
		CreatedAt:        r.CreatedAt,
	}
}

func toStatusUpdateResponse(u *domain.StatusUpdate) StatusUpdateResponse {
	return StatusUpdateResponse{
		ID:        u.ID,
		Status:    string(u.Status),
		Notes:     u.Notes,
		CreatedAt: u.CreatedAt,
	}
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func toEarningResponse(e *domain.Earning) EarningResponse {
	return EarningResponse{
		ID:            e.ID,
		RideID:        e.RideID,
		Amount:        e.Amount,
		Commission:    e.Commission,
		NetAmount:     e.NetAmount,
		PaymentStatus: string(e.PaymentStatus),
		PaidAt:        timePtr(e.PaidAt),
		CreatedAt:     e.CreatedAt,
	}
}

func toQuoteResponse(q *service.Quote) QuoteResponse {
	return QuoteResponse{
		AppointmentID:         q.AppointmentID,
		OneWayDistanceKm:      q.OneWay.DistanceKm,
		OneWayDurationMinutes: q.OneWay.DurationMinutes,
		DistanceKm:            q.DistanceKm,
		DurationMinutes:       q.DurationMinutes,
		Fare:                  q.Fare,
	}
}

func toInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		AppointmentID:   inv.AppointmentID,
		RideID:          inv.RideID,
		HospitalName:    inv.HospitalName,
		HospitalAddress: inv.HospitalAddress,
		PickupLocation:  inv.PickupLocation,
		AppointmentDate: inv.AppointmentDate,
		DistanceKm:      inv.DistanceKm,
		DurationMinutes: inv.DurationMinutes,
		WaitingMinutes:  inv.WaitingMinutes,
		Fare:            inv.Fare,
		CompletedAt:     inv.CompletedAt,
	}
	if inv.Patient != nil {
		resp.PatientName = inv.Patient.FullName
	}
	if inv.Rider != nil {
		resp.RiderName = inv.Rider.FullName
	}
	return resp
}
