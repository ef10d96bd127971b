package service

import (
	"context"
	"fmt"
	"strings"

	"medride/internal/domain"
	"medride/internal/repository"
)

// InvoiceService composes invoices of completed rides.
type InvoiceService struct {
	store repository.Store
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(store repository.Store) *InvoiceService {
	return &InvoiceService{store: store}
}

// Get returns the invoice of a completed appointment.
func (s *InvoiceService) Get(ctx context.Context, appointmentID string, actor Actor) (*domain.Invoice, error) {
	if appointmentID == "" {
		return nil, ErrInvalidAppointmentID
	}

	appt, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != appt.PatientID && actor.UserID != appt.RiderID {
		return nil, ErrNotAppointmentParty
	}

	ride, err := s.store.Rides().GetByAppointmentID(ctx, appt.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvoiceNotReady
		}
		return nil, fmt.Errorf("load ride: %w", err)
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, ErrInvoiceNotReady
	}

	patient, err := s.store.Profiles().GetByID(ctx, ride.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	rider, err := s.store.Profiles().GetByID(ctx, ride.RiderID)
	if err != nil {
		return nil, fmt.Errorf("load rider: %w", err)
	}

	return &domain.Invoice{
		AppointmentID:   appt.ID,
		RideID:          ride.ID,
		HospitalName:    appt.HospitalName,
		HospitalAddress: appt.HospitalAddress,
		PickupLocation:  appt.PickupLocation,
		AppointmentDate: appt.AppointmentDate,
		Patient:         patient,
		Rider:           rider,
		Status:          ride.Status,
		DistanceKm:      ride.DistanceKm,
		DurationMinutes: ride.DurationMinutes,
		WaitingMinutes:  ride.WaitingMinutes,
		Fare:            ride.Fare,
		CompletedAt:     ride.CompletionTime,
		CreatedAt:       ride.CreatedAt,
	}, nil
}

// Format renders the invoice as plain text (for email/print).
func (s *InvoiceService) Format(inv *domain.Invoice) string {
	var b strings.Builder
	line := strings.Repeat("=", 37)
	rule := strings.Repeat("-", 37)

	fmt.Fprintf(&b, "%s\n      PATIENT TRANSPORT INVOICE\n%s\n", line, line)
	fmt.Fprintf(&b, "Appointment: %s\n", inv.AppointmentID)
	fmt.Fprintf(&b, "Date:        %s\n", inv.AppointmentDate.Format("Jan 02, 2006 3:04 PM"))
	fmt.Fprintf(&b, "Completed:   %s\n\n", inv.CompletedAt.Format("Jan 02, 2006 3:04 PM"))

	fmt.Fprintf(&b, "TRIP DETAILS\n%s\n", rule)
	fmt.Fprintf(&b, "Patient:  %s\n", profileName(inv.Patient))
	fmt.Fprintf(&b, "Rider:    %s\n", profileName(inv.Rider))
	fmt.Fprintf(&b, "Pickup:   %s\n", inv.PickupLocation)
	fmt.Fprintf(&b, "Hospital: %s, %s\n", inv.HospitalName, inv.HospitalAddress)
	fmt.Fprintf(&b, "Distance: %s km (round trip)\n", formatAmount(inv.DistanceKm))
	fmt.Fprintf(&b, "Duration: %d min\n", inv.DurationMinutes)
	if inv.WaitingMinutes > 0 {
		fmt.Fprintf(&b, "Waiting:  %d min\n", inv.WaitingMinutes)
	}

	fmt.Fprintf(&b, "\nFARE BREAKDOWN\n%s\n", rule)
	fmt.Fprintf(&b, "Base Fare:       Rs %s\n", formatAmount(inv.Fare.BaseFare))
	fmt.Fprintf(&b, "Distance:        Rs %s\n", formatAmount(inv.Fare.DistanceFare))
	fmt.Fprintf(&b, "Time:            Rs %s\n", formatAmount(inv.Fare.TimeFare))
	fmt.Fprintf(&b, "Assistance:      Rs %s\n", formatAmount(inv.Fare.AssistanceFee))
	if inv.Fare.WaitingFare > 0 {
		fmt.Fprintf(&b, "Waiting:         Rs %s\n", formatAmount(inv.Fare.WaitingFare))
	}
	fmt.Fprintf(&b, "%s\nTOTAL:           Rs %s\n%s\n", rule, formatAmount(inv.Fare.Total), line)

	return b.String()
}

func profileName(p *domain.Profile) string {
	if p == nil || p.FullName == "" {
		return "-"
	}
	return p.FullName
}

func formatAmount(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
