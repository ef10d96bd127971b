package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"medride/internal/domain"
	"medride/internal/events"
	"medride/internal/fare"
	"medride/internal/repository"
	"medride/internal/routing"
)

// AcceptLocker serializes quote-and-accept attempts on one appointment across instances.
type AcceptLocker interface {
	AcquireAcceptLock(ctx context.Context, appointmentID string, ttl time.Duration) (bool, error)
	ReleaseAcceptLock(ctx context.Context, appointmentID string) error
}

// LifecycleConfig holds lifecycle tunables.
type LifecycleConfig struct {
	CommissionRate float64
	AcceptLockTTL  time.Duration
}

// LifecycleService drives a ride from acceptance to completion or cancellation.
// Every operation runs in one store transaction and publishes its events after commit.
// Locks are always taken appointment first, then ride.
type LifecycleService struct {
	store         repository.Store
	estimator     routing.Estimator
	locker        AcceptLocker
	notifications *NotificationService
	bus           events.Publisher
	logger        *logrus.Logger
	clock         Clock
	cfg           LifecycleConfig
}

// NewLifecycleService creates a new LifecycleService. estimator and locker may be nil.
func NewLifecycleService(
	store repository.Store,
	estimator routing.Estimator,
	locker AcceptLocker,
	notifications *NotificationService,
	bus events.Publisher,
	logger *logrus.Logger,
	clock Clock,
	cfg LifecycleConfig,
) *LifecycleService {
	if cfg.AcceptLockTTL <= 0 {
		cfg.AcceptLockTTL = 15 * time.Second
	}
	return &LifecycleService{
		store:         store,
		estimator:     estimator,
		locker:        locker,
		notifications: notifications,
		bus:           bus,
		logger:        logger,
		clock:         clock,
		cfg:           cfg,
	}
}

// AcceptRideRequest contains the parameters for accepting an appointment.
type AcceptRideRequest struct {
	AppointmentID            string
	RiderID                  string
	RoundTripDistanceKm      float64
	RoundTripDurationMinutes int
	EnhancedSupport          bool
}

// AcceptRideResponse contains the result of an acceptance.
type AcceptRideResponse struct {
	Appointment *domain.Appointment
	Ride        *domain.Ride
	Update      *domain.StatusUpdate
}

// AcceptRide claims a pending appointment for a rider and creates its ride.
// Of many concurrent attempts exactly one succeeds; the others get ErrAppointmentAlreadyClaimed.
func (s *LifecycleService) AcceptRide(ctx context.Context, req AcceptRideRequest) (*AcceptRideResponse, error) {
	if req.AppointmentID == "" {
		return nil, ErrInvalidAppointmentID
	}
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.RoundTripDistanceKm < 0 || req.RoundTripDurationMinutes < 0 {
		return nil, ErrInvalidRouteFigures
	}

	rider, err := s.store.Profiles().GetByID(ctx, req.RiderID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotRider
		}
		return nil, fmt.Errorf("load rider: %w", err)
	}
	if rider.Role != domain.RoleRider {
		return nil, ErrNotRider
	}

	breakdown := fare.Compute(req.RoundTripDistanceKm, float64(req.RoundTripDurationMinutes), fare.Options{
		EnhancedSupport: req.EnhancedSupport,
	})
	now := s.clock.now()

	var resp AcceptRideResponse
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		appt, err := tx.Appointments().Claim(ctx, req.AppointmentID, req.RiderID, breakdown.Total, now)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAppointmentAlreadyClaimed
			}
			return err
		}

		ride := &domain.Ride{
			ID:              uuid.New().String(),
			AppointmentID:   appt.ID,
			PatientID:       appt.PatientID,
			RiderID:         req.RiderID,
			Status:          domain.RideStatusAccepted,
			DistanceKm:      fare.Round2(req.RoundTripDistanceKm),
			DurationMinutes: req.RoundTripDurationMinutes,
			Fare:            breakdown,
			Completion:      domain.NewCompletionQuorum(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Rides().Create(ctx, ride); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAppointmentAlreadyClaimed
			}
			return fmt.Errorf("create ride: %w", err)
		}

		update, err := appendUpdate(ctx, tx.StatusUpdates(), ride.ID, domain.RideStatusAccepted, "", now)
		if err != nil {
			return err
		}

		resp = AcceptRideResponse{Appointment: appt, Ride: ride, Update: update}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_id": resp.Appointment.ID,
		"ride_id":        resp.Ride.ID,
		"rider_id":       resp.Ride.RiderID,
		"total_fare":     resp.Ride.Fare.Total,
	}).Info("appointment accepted")

	s.publish(events.Event{
		Type:              events.RideAccepted,
		AppointmentID:     resp.Appointment.ID,
		RideID:            resp.Ride.ID,
		Status:            string(domain.RideStatusAccepted),
		AppointmentStatus: string(resp.Appointment.Status),
		ActorID:           req.RiderID,
		TotalFare:         resp.Ride.Fare.Total,
		Audience:          []string{resp.Ride.PatientID, resp.Ride.RiderID},
		OccurredAt:        now,
	})

	return &resp, nil
}

// Quote is a priced round-trip estimate for an appointment.
type Quote struct {
	AppointmentID   string
	OneWay          routing.RouteEstimate
	DistanceKm      float64 // Round trip
	DurationMinutes int     // Round trip
	Fare            fare.Breakdown
}

// Quote prices the round trip of an appointment without changing it.
func (s *LifecycleService) Quote(ctx context.Context, appointmentID string, actor Actor, enhanced bool) (*Quote, error) {
	if appointmentID == "" {
		return nil, ErrInvalidAppointmentID
	}
	appt, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.canReadAppointment(appt) {
		return nil, ErrNotAppointmentParty
	}
	return s.quote(ctx, appt, enhanced)
}

func (s *LifecycleService) quote(ctx context.Context, appt *domain.Appointment, enhanced bool) (*Quote, error) {
	if s.estimator == nil {
		return nil, ErrQuoteUnavailable
	}

	estimate, err := s.estimator.EstimateRoundTrip(ctx, appt.PickupLocation, appt.HospitalAddress)
	if err != nil {
		if errors.Is(err, ErrQuoteUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
	}
	if estimate == nil {
		return nil, ErrQuoteUnavailable
	}

	km, minutes := estimate.RoundTrip()
	return &Quote{
		AppointmentID:   appt.ID,
		OneWay:          *estimate,
		DistanceKm:      km,
		DurationMinutes: minutes,
		Fare:            fare.Compute(km, float64(minutes), fare.Options{EnhancedSupport: enhanced}),
	}, nil
}

// QuoteAndAccept prices the appointment's round trip and accepts it at that fare.
// Acceptance is refused when no quote can be produced.
func (s *LifecycleService) QuoteAndAccept(ctx context.Context, appointmentID string, actor Actor, enhanced bool) (*AcceptRideResponse, error) {
	if appointmentID == "" {
		return nil, ErrInvalidAppointmentID
	}
	if actor.Role != domain.RoleRider {
		return nil, ErrNotRider
	}

	appt, err := s.store.Appointments().GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.IsClaimable() {
		return nil, ErrAppointmentAlreadyClaimed
	}

	if s.locker != nil {
		acquired, err := s.locker.AcquireAcceptLock(ctx, appointmentID, s.cfg.AcceptLockTTL)
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("accept lock unavailable, relying on conditional claim")
		case !acquired:
			return nil, ErrAcceptInProgress
		default:
			defer s.releaseAcceptLock(ctx, appointmentID)
		}
	}

	q, err := s.quote(ctx, appt, enhanced)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"appointment_id": appointmentID,
			"rider_id":       actor.UserID,
		}).Warn("acceptance blocked: quote unavailable")
		return nil, err
	}

	return s.AcceptRide(ctx, AcceptRideRequest{
		AppointmentID:            appointmentID,
		RiderID:                  actor.UserID,
		RoundTripDistanceKm:      q.DistanceKm,
		RoundTripDurationMinutes: q.DurationMinutes,
		EnhancedSupport:          enhanced,
	})
}

func (s *LifecycleService) releaseAcceptLock(ctx context.Context, appointmentID string) {
	if err := s.locker.ReleaseAcceptLock(context.WithoutCancel(ctx), appointmentID); err != nil {
		s.logger.WithError(err).Warn("failed to release accept lock")
	}
}

// AdvanceStageRequest contains the parameters for advancing a ride.
type AdvanceStageRequest struct {
	RideID string
	Actor  Actor
	Status domain.RideStatus
	Notes  string
}

// AdvanceStageResponse contains the result of a stage advance.
type AdvanceStageResponse struct {
	Ride              *domain.Ride
	Update            *domain.StatusUpdate
	AppointmentStatus domain.AppointmentStatus
}

// AdvanceStage moves a ride to the immediate successor of its current stage.
// Only the assigned rider may advance; completed is only reachable through MarkCompleted.
func (s *LifecycleService) AdvanceStage(ctx context.Context, req AdvanceStageRequest) (*AdvanceStageResponse, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	switch req.Status {
	case domain.RideStatusCompleted:
		return nil, ErrCompletionRequiresQuorum
	case domain.RideStatusCancelled:
		return nil, ErrInvalidTransition
	}

	now := s.clock.now()
	var resp AdvanceStageResponse
	var from domain.RideStatus
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		appt, ride, err := lockRide(ctx, tx, req.RideID)
		if err != nil {
			return err
		}
		if ride.RiderID != req.Actor.UserID {
			return ErrNotRideRider
		}
		if err := terminalError(ride.Status); err != nil {
			return err
		}

		from, err = currentStage(ctx, tx.StatusUpdates(), ride.ID)
		if err != nil {
			return err
		}
		if !domain.CanAdvance(from, req.Status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, req.Status)
		}

		expected := ride.Status
		ride.Status = req.Status
		ride.UpdatedAt = now
		if req.Status == domain.RideStatusPickup && ride.PickupTime.IsZero() {
			ride.PickupTime = now
		}
		if req.Notes != "" {
			ride.RiderNotes = req.Notes
		}
		if err := tx.Rides().Update(ctx, ride, expected); err != nil {
			return mapRideWrite(err)
		}

		update, err := appendUpdate(ctx, tx.StatusUpdates(), ride.ID, req.Status, req.Notes, now)
		if err != nil {
			return err
		}

		if appt.Status == domain.AppointmentStatusAccepted {
			err := tx.Appointments().TransitionStatus(ctx, appt.ID,
				[]domain.AppointmentStatus{domain.AppointmentStatusAccepted},
				domain.AppointmentStatusInProgress, now)
			if err != nil {
				return fmt.Errorf("start appointment: %w", err)
			}
			appt.Status = domain.AppointmentStatusInProgress
		}

		resp = AdvanceStageResponse{Ride: ride, Update: update, AppointmentStatus: appt.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"ride_id": resp.Ride.ID,
		"from":    from,
		"to":      resp.Ride.Status,
	}).Info("ride stage advanced")

	s.publish(events.Event{
		Type:              events.StageAdvanced,
		AppointmentID:     resp.Ride.AppointmentID,
		RideID:            resp.Ride.ID,
		Status:            string(resp.Ride.Status),
		AppointmentStatus: string(resp.AppointmentStatus),
		ActorID:           req.Actor.UserID,
		Audience:          []string{resp.Ride.PatientID, resp.Ride.RiderID},
		OccurredAt:        resp.Update.CreatedAt,
	})

	return &resp, nil
}

// MarkCompletedRequest contains the parameters for confirming completion.
type MarkCompletedRequest struct {
	RideID         string
	Actor          Actor
	WaitingMinutes int
	Notes          string
}

// MarkCompletedResponse contains the result of a completion confirmation.
type MarkCompletedResponse struct {
	Ride          *domain.Ride
	Party         domain.Party
	Recorded      bool    // First confirmation by this party
	Finalized     bool    // This confirmation completed the ride
	WaitingCharge float64 // Added to the fare by this confirmation
	Earning       *domain.Earning
	Notifications []*domain.Notification
}

// MarkCompleted records the caller's completion confirmation once the ride is returning.
// The ride is finalized exactly once, when the last required party confirms.
// Only the rider may report waiting minutes.
func (s *LifecycleService) MarkCompleted(ctx context.Context, req MarkCompletedRequest) (*MarkCompletedResponse, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.WaitingMinutes < 0 {
		return nil, ErrInvalidWaitingMinutes
	}

	now := s.clock.now()
	var resp MarkCompletedResponse
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		appt, ride, err := lockRide(ctx, tx, req.RideID)
		if err != nil {
			return err
		}
		party, ok := ride.PartyOf(req.Actor.UserID)
		if !ok {
			return ErrNotRideParty
		}
		if party != domain.PartyRider && req.WaitingMinutes > 0 {
			return ErrInvalidWaitingMinutes
		}
		resp = MarkCompletedResponse{Ride: ride, Party: party}

		switch ride.Status {
		case domain.RideStatusCancelled:
			return ErrRideCancelled
		case domain.RideStatusCompleted:
			return nil
		}

		stage, err := currentStage(ctx, tx.StatusUpdates(), ride.ID)
		if err != nil {
			return err
		}
		if !domain.CanComplete(stage) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, stage, domain.RideStatusCompleted)
		}

		expected := ride.Status
		outcome := ride.ConfirmCompletion(party, now, req.WaitingMinutes)
		if !outcome.Recorded {
			return nil
		}
		if req.Notes != "" {
			switch party {
			case domain.PartyRider:
				ride.RiderNotes = req.Notes
			case domain.PartyPatient:
				ride.PatientNotes = req.Notes
			}
		}

		added, err := tx.Rides().AddCompletion(ctx, ride.ID, party, now)
		if err != nil {
			return fmt.Errorf("record completion: %w", err)
		}
		if !added {
			return ErrRideChanged
		}
		if err := tx.Rides().Update(ctx, ride, expected); err != nil {
			return mapRideWrite(err)
		}
		resp.Recorded = true
		resp.WaitingCharge = outcome.Waiting

		if outcome.Waiting > 0 || outcome.Finalized {
			total := ride.Fare.Total
			if err := tx.Appointments().SetTotalCost(ctx, appt.ID, &total, now); err != nil {
				return fmt.Errorf("update total cost: %w", err)
			}
		}
		if !outcome.Finalized {
			return nil
		}

		resp.Finalized = true
		return s.finalize(ctx, tx, appt, ride, &resp, now)
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"ride_id":   resp.Ride.ID,
		"party":     resp.Party,
		"recorded":  resp.Recorded,
		"finalized": resp.Finalized,
	}
	if !resp.Recorded {
		s.logger.WithFields(fields).Debug("repeated completion ignored")
		return &resp, nil
	}
	s.logger.WithFields(fields).Info("completion confirmed")

	audience := []string{resp.Ride.PatientID, resp.Ride.RiderID}
	s.publish(events.Event{
		Type:          events.CompletionConfirmed,
		AppointmentID: resp.Ride.AppointmentID,
		RideID:        resp.Ride.ID,
		Status:        string(resp.Ride.Status),
		Party:         string(resp.Party),
		ActorID:       req.Actor.UserID,
		TotalFare:     resp.Ride.Fare.Total,
		Audience:      audience,
		OccurredAt:    now,
	})
	if resp.Finalized {
		s.publish(events.Event{
			Type:              events.RideCompleted,
			AppointmentID:     resp.Ride.AppointmentID,
			RideID:            resp.Ride.ID,
			Status:            string(domain.RideStatusCompleted),
			AppointmentStatus: string(domain.AppointmentStatusCompleted),
			TotalFare:         resp.Ride.Fare.Total,
			Audience:          audience,
			OccurredAt:        now,
		})
		s.notifications.announce(resp.Notifications...)
	}

	return &resp, nil
}

// finalize writes the completion side effects inside the confirming transaction.
func (s *LifecycleService) finalize(ctx context.Context, tx repository.Tx, appt *domain.Appointment, ride *domain.Ride, resp *MarkCompletedResponse, now time.Time) error {
	if _, err := appendUpdate(ctx, tx.StatusUpdates(), ride.ID, domain.RideStatusCompleted, "", now); err != nil {
		return err
	}

	err := tx.Appointments().TransitionStatus(ctx, appt.ID,
		[]domain.AppointmentStatus{domain.AppointmentStatusAccepted, domain.AppointmentStatusInProgress},
		domain.AppointmentStatusCompleted, now)
	if err != nil {
		return fmt.Errorf("complete appointment: %w", err)
	}

	for _, userID := range []string{ride.RiderID, ride.PatientID} {
		n, err := s.notifications.dispatch(ctx, tx.Notifications(), NotifyRequest{
			UserID:  userID,
			Title:   TitleRideCompleted,
			Message: domain.InvoiceMessage(appt.ID),
			Type:    domain.NotificationTypeInvoice,
		}, now)
		if err != nil {
			return err
		}
		resp.Notifications = append(resp.Notifications, n)
	}

	earning := newEarning(ride, s.cfg.CommissionRate, now)
	if err := tx.Earnings().Create(ctx, earning); err != nil {
		return fmt.Errorf("create earning: %w", err)
	}
	resp.Earning = earning
	return nil
}

func newEarning(ride *domain.Ride, commissionRate float64, at time.Time) *domain.Earning {
	amount := ride.Fare.Total
	commission := fare.Round2(amount * commissionRate)
	return &domain.Earning{
		ID:            uuid.New().String(),
		RiderID:       ride.RiderID,
		RideID:        ride.ID,
		Amount:        amount,
		Commission:    commission,
		NetAmount:     fare.Round2(amount - commission),
		PaymentStatus: domain.EarningStatusPending,
		CreatedAt:     at,
	}
}

// CancelRequest contains the parameters for cancelling an appointment.
type CancelRequest struct {
	AppointmentID string
	Actor         Actor
	Reason        string
}

// CancelResponse contains the result of a cancellation.
type CancelResponse struct {
	Appointment   *domain.Appointment
	Ride          *domain.Ride // Nil if no rider had accepted
	Notifications []*domain.Notification
}

// CancelAppointment cancels an appointment and its ride. No fare is charged.
func (s *LifecycleService) CancelAppointment(ctx context.Context, req CancelRequest) (*CancelResponse, error) {
	if req.AppointmentID == "" {
		return nil, ErrInvalidAppointmentID
	}

	now := s.clock.now()
	var resp CancelResponse
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		appt, err := tx.Appointments().GetForUpdate(ctx, req.AppointmentID)
		if err != nil {
			return err
		}
		ride, err := tx.Rides().GetByAppointmentIDForUpdate(ctx, appt.ID)
		if err != nil {
			if !isNotFound(err) {
				return fmt.Errorf("load ride: %w", err)
			}
			ride = nil
		}
		riderID := assignedRider(appt, ride)

		if !canCancel(req.Actor, appt, riderID) {
			return ErrNotAppointmentParty
		}
		if appt.Status == domain.AppointmentStatusCancelled {
			return ErrAlreadyCancelled
		}
		if !appt.IsCancellable() {
			return ErrCannotCancel
		}

		// Clears rider_id and total_cost with the status: a cancelled appointment has no rider.
		err = tx.Appointments().Cancel(ctx, appt.ID,
			[]domain.AppointmentStatus{
				domain.AppointmentStatusPending,
				domain.AppointmentStatusAccepted,
				domain.AppointmentStatusInProgress,
			}, now)
		if err != nil {
			return fmt.Errorf("cancel appointment: %w", err)
		}
		appt.Status = domain.AppointmentStatusCancelled
		appt.RiderID = ""
		appt.TotalCost = nil
		appt.UpdatedAt = now

		if ride != nil && !ride.Status.IsTerminal() {
			expected := ride.Status
			ride.Status = domain.RideStatusCancelled
			ride.UpdatedAt = now
			if err := tx.Rides().Update(ctx, ride, expected); err != nil {
				return mapRideWrite(err)
			}
			if _, err := appendUpdate(ctx, tx.StatusUpdates(), ride.ID, domain.RideStatusCancelled, req.Reason, now); err != nil {
				return err
			}
		}

		resp = CancelResponse{Appointment: appt, Ride: ride}
		for _, userID := range cancellationRecipients(appt.PatientID, riderID, req.Actor) {
			n, err := s.notifications.dispatch(ctx, tx.Notifications(), NotifyRequest{
				UserID:  userID,
				Title:   TitleRideCancelled,
				Message: cancellationMessage(appt, riderID, req.Actor, req.Reason),
				Type:    domain.NotificationTypeRide,
			}, now)
			if err != nil {
				return err
			}
			resp.Notifications = append(resp.Notifications, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"appointment_id": resp.Appointment.ID,
		"cancelled_by":   req.Actor.UserID,
		"reason":         req.Reason,
	}).Info("appointment cancelled")

	audience := []string{resp.Appointment.PatientID}
	if resp.Ride != nil {
		audience = append(audience, resp.Ride.RiderID)
	}
	e := events.Event{
		Type:              events.RideCancelled,
		AppointmentID:     resp.Appointment.ID,
		Status:            string(domain.RideStatusCancelled),
		AppointmentStatus: string(domain.AppointmentStatusCancelled),
		ActorID:           req.Actor.UserID,
		Audience:          audience,
		OccurredAt:        now,
	}
	if resp.Ride != nil {
		e.RideID = resp.Ride.ID
	}
	s.publish(e)
	s.notifications.announce(resp.Notifications...)

	return &resp, nil
}

// CancelRide cancels the appointment a ride belongs to.
func (s *LifecycleService) CancelRide(ctx context.Context, rideID string, actor Actor, reason string) (*CancelResponse, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	return s.CancelAppointment(ctx, CancelRequest{AppointmentID: ride.AppointmentID, Actor: actor, Reason: reason})
}

// GetRide returns a ride visible to the actor.
func (s *LifecycleService) GetRide(ctx context.Context, rideID string, actor Actor) (*domain.Ride, error) {
	return loadRideForRead(ctx, s.store.Rides(), rideID, actor)
}

// ListRides returns the actor's rides, or every ride for admins.
func (s *LifecycleService) ListRides(ctx context.Context, actor Actor, limit int) ([]*domain.Ride, error) {
	if actor.IsAdmin() {
		return s.store.Rides().ListAll(ctx, limit)
	}
	return s.store.Rides().ListByUser(ctx, actor.UserID, limit)
}

func (s *LifecycleService) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

// lockRide locks the ride's appointment, then the ride itself.
func lockRide(ctx context.Context, tx repository.Tx, rideID string) (*domain.Appointment, *domain.Ride, error) {
	probe, err := tx.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, nil, err
	}
	appt, err := tx.Appointments().GetForUpdate(ctx, probe.AppointmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock appointment: %w", err)
	}
	ride, err := tx.Rides().GetForUpdate(ctx, rideID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock ride: %w", err)
	}
	return appt, ride, nil
}

func terminalError(status domain.RideStatus) error {
	switch status {
	case domain.RideStatusCancelled:
		return ErrRideCancelled
	case domain.RideStatusCompleted:
		return ErrRideCompleted
	default:
		return nil
	}
}

func mapRideWrite(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return ErrRideChanged
	}
	return fmt.Errorf("update ride: %w", err)
}

// assignedRider returns the rider of an appointment. The ride row keeps it after cancellation.
func assignedRider(appt *domain.Appointment, ride *domain.Ride) string {
	if ride != nil {
		return ride.RiderID
	}
	return appt.RiderID
}

func canCancel(actor Actor, appt *domain.Appointment, riderID string) bool {
	return actor.IsAdmin() ||
		actor.UserID == appt.PatientID ||
		(riderID != "" && actor.UserID == riderID)
}

// cancellationRecipients returns the parties that did not cancel.
func cancellationRecipients(patientID, riderID string, actor Actor) []string {
	var out []string
	if actor.UserID != patientID {
		out = append(out, patientID)
	}
	if riderID != "" && actor.UserID != riderID {
		out = append(out, riderID)
	}
	return out
}

func cancellationMessage(appt *domain.Appointment, riderID string, actor Actor, reason string) string {
	by := "an administrator"
	switch {
	case actor.UserID == appt.PatientID:
		by = "the patient"
	case riderID != "" && actor.UserID == riderID:
		by = "the rider"
	}
	msg := fmt.Sprintf("The ride to %s on %s was cancelled by %s.",
		appt.HospitalName, appt.AppointmentDate.Format("Jan 02, 2006 3:04 PM"), by)
	if reason != "" {
		msg += " Reason: " + reason
	}
	return msg
}
