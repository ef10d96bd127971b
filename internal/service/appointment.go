package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medride/internal/domain"
	"medride/internal/repository"
)

// AppointmentService handles booking and browsing of appointments.
type AppointmentService struct {
	store  repository.Store
	logger *logrus.Logger
	clock  Clock
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(store repository.Store, logger *logrus.Logger, clock Clock) *AppointmentService {
	return &AppointmentService{
		store:  store,
		logger: logger,
		clock:  clock,
	}
}

// BookRequest contains the parameters for booking an appointment.
type BookRequest struct {
	Actor               Actor
	HospitalName        string
	HospitalAddress     string
	AppointmentDate     time.Time
	EstimatedDuration   string
	PickupLocation      string
	SpecialInstructions string
}

// Book creates a pending appointment for the calling patient.
func (s *AppointmentService) Book(ctx context.Context, req BookRequest) (*domain.Appointment, error) {
	if req.Actor.Role != domain.RolePatient {
		return nil, ErrForbidden
	}
	if err := validateBooking(req); err != nil {
		return nil, err
	}

	now := s.clock.now()
	appt := &domain.Appointment{
		ID:                  uuid.New().String(),
		PatientID:           req.Actor.UserID,
		HospitalName:        strings.TrimSpace(req.HospitalName),
		HospitalAddress:     strings.TrimSpace(req.HospitalAddress),
		AppointmentDate:     req.AppointmentDate.UTC(),
		EstimatedDuration:   req.EstimatedDuration,
		PickupLocation:      strings.TrimSpace(req.PickupLocation),
		SpecialInstructions: req.SpecialInstructions,
		Status:              domain.AppointmentStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.store.Appointments().Create(ctx, appt); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"date":           appt.AppointmentDate,
	}).Info("appointment booked")

	return appt, nil
}

func validateBooking(req BookRequest) error {
	switch {
	case strings.TrimSpace(req.HospitalName) == "":
		return ErrInvalidBooking
	case strings.TrimSpace(req.HospitalAddress) == "":
		return ErrInvalidBooking
	case strings.TrimSpace(req.PickupLocation) == "":
		return ErrInvalidBooking
	case req.AppointmentDate.IsZero():
		return ErrInvalidBooking
	default:
		return nil
	}
}

// ListAvailable returns claimable appointments for riders, soonest first.
func (s *AppointmentService) ListAvailable(ctx context.Context, actor Actor, limit int) ([]*domain.Appointment, error) {
	if actor.Role != domain.RoleRider && !actor.IsAdmin() {
		return nil, ErrNotRider
	}
	return s.store.Appointments().ListAvailable(ctx, limit)
}

// ListForUser returns the appointments the actor is part of, newest first.
func (s *AppointmentService) ListForUser(ctx context.Context, actor Actor, limit int) ([]*domain.Appointment, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return s.store.Appointments().ListAll(ctx, limit)
	case domain.RoleRider:
		return s.store.Appointments().ListByRider(ctx, actor.UserID, limit)
	default:
		return s.store.Appointments().ListByPatient(ctx, actor.UserID, limit)
	}
}

// Get returns an appointment visible to the actor.
func (s *AppointmentService) Get(ctx context.Context, id string, actor Actor) (*domain.Appointment, error) {
	if id == "" {
		return nil, ErrInvalidAppointmentID
	}
	appt, err := s.store.Appointments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canReadAppointment(appt) {
		return nil, ErrNotAppointmentParty
	}
	return appt, nil
}

// Delete removes an appointment with its ride, timeline and earning. Admin only.
func (s *AppointmentService) Delete(ctx context.Context, id string, actor Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if id == "" {
		return ErrInvalidAppointmentID
	}
	if err := s.store.Appointments().Delete(ctx, id); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_id": id,
		"admin_id":       actor.UserID,
	}).Warn("appointment deleted")
	return nil
}
