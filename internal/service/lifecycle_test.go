package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"medride/internal/domain"
	"medride/internal/events"
	"medride/internal/repository"
	"medride/internal/service"
)

// ──────────────────────────────────────────────
// 1. ACCEPTANCE
// ──────────────────────────────────────────────

func TestAcceptRide_ComputesFareAndOpensTimeline(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp := f.accept(t)

	if resp.Ride.Status != domain.RideStatusAccepted {
		t.Errorf("expected ride status accepted, got %s", resp.Ride.Status)
	}
	if resp.Ride.Fare.Total != 790 {
		t.Errorf("expected total fare 790, got %v", resp.Ride.Fare.Total)
	}
	if resp.Appointment.Status != domain.AppointmentStatusAccepted {
		t.Errorf("expected appointment accepted, got %s", resp.Appointment.Status)
	}
	if resp.Appointment.RiderID != riderID {
		t.Errorf("expected rider %s, got %s", riderID, resp.Appointment.RiderID)
	}
	if got := float64Value(resp.Appointment.TotalCost); got != 790 {
		t.Errorf("expected appointment total cost 790, got %v", got)
	}

	timeline, err := f.statusLog.Timeline(context.Background(), resp.Ride.ID, patient)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(timeline) != 1 || timeline[0].Status != domain.RideStatusAccepted {
		t.Errorf("expected timeline [accepted], got %+v", timeline)
	}

	accepted := f.bus.OfType(events.RideAccepted)
	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted event, got %d", len(accepted))
	}
	if !accepted[0].For(patientID) || !accepted[0].For(riderID) {
		t.Errorf("expected event audience to contain both parties, got %v", accepted[0].Audience)
	}
}

func TestAcceptRide_ConcurrentRiders_ExactlyOneWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	appt := f.book(t)
	riders := f.addRiders(t, 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)
	for _, r := range riders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.lifecycle.AcceptRide(context.Background(), service.AcceptRideRequest{
				AppointmentID:            appt.ID,
				RiderID:                  r.UserID,
				RoundTripDistanceKm:      10,
				RoundTripDurationMinutes: 20,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, r.UserID)
			case errors.Is(err, service.ErrAppointmentAlreadyClaimed):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", len(winners))
	}
	if conflicts != len(riders)-1 {
		t.Errorf("expected %d conflicts, got %d", len(riders)-1, conflicts)
	}

	stored, err := f.store.Appointments().GetByID(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if stored.RiderID != winners[0] {
		t.Errorf("expected appointment rider %s, got %s", winners[0], stored.RiderID)
	}

	rides, err := f.store.Rides().ListAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("list rides: %v", err)
	}
	if len(rides) != 1 {
		t.Errorf("expected exactly 1 ride, got %d", len(rides))
	}
}

func TestAcceptRide_InvalidInput_Fails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	appt := f.book(t)

	testCases := []struct {
		name    string
		req     service.AcceptRideRequest
		wantErr error
	}{
		{
			name:    "missing appointment",
			req:     service.AcceptRideRequest{RiderID: riderID},
			wantErr: service.ErrInvalidAppointmentID,
		},
		{
			name:    "missing rider",
			req:     service.AcceptRideRequest{AppointmentID: appt.ID},
			wantErr: service.ErrInvalidRiderID,
		},
		{
			name:    "negative distance",
			req:     service.AcceptRideRequest{AppointmentID: appt.ID, RiderID: riderID, RoundTripDistanceKm: -1},
			wantErr: service.ErrInvalidRouteFigures,
		},
		{
			name:    "patient cannot accept",
			req:     service.AcceptRideRequest{AppointmentID: appt.ID, RiderID: patientID},
			wantErr: service.ErrNotRider,
		},
		{
			name:    "unknown appointment",
			req:     service.AcceptRideRequest{AppointmentID: "missing", RiderID: riderID},
			wantErr: repository.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.lifecycle.AcceptRide(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestQuoteAndAccept_UsesRoundTripOfEstimate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	appt := f.book(t)

	resp, err := f.lifecycle.QuoteAndAccept(context.Background(), appt.ID, rider, false)
	if err != nil {
		t.Fatalf("quote and accept: %v", err)
	}

	if resp.Ride.DistanceKm != 10.25 || resp.Ride.DurationMinutes != 25 {
		t.Errorf("expected 10.25 km / 25 min, got %v km / %d min", resp.Ride.DistanceKm, resp.Ride.DurationMinutes)
	}
	if resp.Ride.Fare.Total != 790 {
		t.Errorf("expected total fare 790, got %v", resp.Ride.Fare.Total)
	}
	if len(f.locker.released) != 1 || f.locker.released[0] != appt.ID {
		t.Errorf("expected accept lock released once, got %v", f.locker.released)
	}
}

func TestQuoteAndAccept_QuoteUnavailable_BlocksAcceptance(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.estimator.err = errors.New("connection refused")
	appt := f.book(t)

	_, err := f.lifecycle.QuoteAndAccept(context.Background(), appt.ID, rider, false)
	if !errors.Is(err, service.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}

	stored, err := f.store.Appointments().GetByID(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if !stored.IsClaimable() {
		t.Errorf("expected appointment to stay claimable, got status %s rider %q", stored.Status, stored.RiderID)
	}
}

func TestQuoteAndAccept_LockHeld_ReturnsInProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.locker.Held = true
	appt := f.book(t)

	_, err := f.lifecycle.QuoteAndAccept(context.Background(), appt.ID, rider, false)
	if !errors.Is(err, service.ErrAcceptInProgress) {
		t.Fatalf("expected ErrAcceptInProgress, got %v", err)
	}
	if f.estimator.calls != 0 {
		t.Errorf("expected no routing calls, got %d", f.estimator.calls)
	}
}

func TestQuoteAndAccept_LockBackendDown_StillAccepts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.locker.Err = errors.New("redis: connection refused")
	appt := f.book(t)

	if _, err := f.lifecycle.QuoteAndAccept(context.Background(), appt.ID, rider, false); err != nil {
		t.Fatalf("expected acceptance without lock, got %v", err)
	}
}

func TestQuote_EnhancedSupport(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	appt := f.book(t)

	q, err := f.lifecycle.Quote(context.Background(), appt.ID, patient, true)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Fare.AssistanceFee != 300 || q.Fare.Total != 940 {
		t.Errorf("expected enhanced fee 300 and total 940, got %+v", q.Fare)
	}

	if _, err := f.lifecycle.Quote(context.Background(), appt.ID, service.Actor{UserID: "stranger", Role: domain.RolePatient}, false); !errors.Is(err, service.ErrNotAppointmentParty) {
		t.Errorf("expected ErrNotAppointmentParty, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 2. STAGE ADVANCE
// ──────────────────────────────────────────────

func TestAdvanceStage_StrictAdjacency(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)

	_, err := f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
		RideID: resp.Ride.ID,
		Actor:  rider,
		Status: domain.RideStatusEnRoute,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition skipping pickup, got %v", err)
	}

	adv, err := f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
		RideID: resp.Ride.ID,
		Actor:  rider,
		Status: domain.RideStatusPickup,
		Notes:  "patient in wheelchair",
	})
	if err != nil {
		t.Fatalf("advance to pickup: %v", err)
	}
	if adv.AppointmentStatus != domain.AppointmentStatusInProgress {
		t.Errorf("expected appointment in_progress, got %s", adv.AppointmentStatus)
	}
	if adv.Ride.PickupTime.IsZero() {
		t.Error("expected pickup time to be set")
	}
	if adv.Ride.RiderNotes != "patient in wheelchair" {
		t.Errorf("expected rider notes stored, got %q", adv.Ride.RiderNotes)
	}

	_, err = f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
		RideID: resp.Ride.ID,
		Actor:  rider,
		Status: domain.RideStatusPickup,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition repeating pickup, got %v", err)
	}

	_, err = f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
		RideID: resp.Ride.ID,
		Actor:  rider,
		Status: domain.RideStatusAccepted,
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition going backwards, got %v", err)
	}
}

func TestAdvanceStage_FullForwardPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)

	f.advanceTo(t, resp.Ride.ID,
		domain.RideStatusPickup,
		domain.RideStatusEnRoute,
		domain.RideStatusAtHospital,
		domain.RideStatusInAppointment,
		domain.RideStatusReturning,
	)

	stage, err := f.statusLog.CurrentStage(context.Background(), resp.Ride.ID, rider)
	if err != nil {
		t.Fatalf("current stage: %v", err)
	}
	if stage != domain.RideStatusReturning {
		t.Errorf("expected returning, got %s", stage)
	}

	timeline, err := f.statusLog.Timeline(context.Background(), resp.Ride.ID, rider)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(timeline) != 6 {
		t.Fatalf("expected 6 timeline entries, got %d", len(timeline))
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].CreatedAt.Before(timeline[i-1].CreatedAt) {
			t.Errorf("timeline out of order at %d", i)
		}
	}

	if got := len(f.bus.OfType(events.StageAdvanced)); got != 5 {
		t.Errorf("expected 5 stage events, got %d", got)
	}
}

func TestAdvanceStage_ClockStepsBack_TimelineStaysOrdered(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)
	ctx := context.Background()

	f.advanceTo(t, resp.Ride.ID, domain.RideStatusPickup)
	f.clock.rewind(2 * time.Hour)
	f.advanceTo(t, resp.Ride.ID, domain.RideStatusEnRoute)

	timeline, err := f.statusLog.Timeline(ctx, resp.Ride.ID, rider)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(timeline))
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].CreatedAt.Before(timeline[i-1].CreatedAt) {
			t.Errorf("created_at went backwards at %d: %s before %s", i, timeline[i].CreatedAt, timeline[i-1].CreatedAt)
		}
	}

	last := timeline[len(timeline)-1]
	if last.Status != domain.RideStatusEnRoute {
		t.Errorf("expected last entry en_route, got %s", last.Status)
	}
	stage, err := f.statusLog.CurrentStage(ctx, resp.Ride.ID, rider)
	if err != nil {
		t.Fatalf("current stage: %v", err)
	}
	if stage != last.Status {
		t.Errorf("expected current stage %s to match last entry, got %s", last.Status, stage)
	}

	f.advanceTo(t, resp.Ride.ID, domain.RideStatusAtHospital)
	if stage, _ := f.statusLog.CurrentStage(ctx, resp.Ride.ID, rider); stage != domain.RideStatusAtHospital {
		t.Errorf("expected at_hospital after the next advance, got %s", stage)
	}
}

func TestAdvanceStage_CompletedRequiresQuorum(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)
	f.advanceTo(t, resp.Ride.ID, domain.RideStatusPickup, domain.RideStatusEnRoute, domain.RideStatusAtHospital,
		domain.RideStatusInAppointment, domain.RideStatusReturning)

	_, err := f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
		RideID: resp.Ride.ID,
		Actor:  rider,
		Status: domain.RideStatusCompleted,
	})
	if !errors.Is(err, service.ErrCompletionRequiresQuorum) {
		t.Errorf("expected ErrCompletionRequiresQuorum, got %v", err)
	}
}

func TestAdvanceStage_OnlyAssignedRider(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)

	for _, actor := range []service.Actor{patient, rider2} {
		_, err := f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
			RideID: resp.Ride.ID,
			Actor:  actor,
			Status: domain.RideStatusPickup,
		})
		if !errors.Is(err, service.ErrNotRideRider) {
			t.Errorf("%s: expected ErrNotRideRider, got %v", actor.UserID, err)
		}
	}
}

func TestAdvanceStage_UnknownStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)

	_, err := f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
		RideID: resp.Ride.ID,
		Actor:  rider,
		Status: "teleporting",
	})
	if !errors.Is(err, service.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 3. COMPLETION QUORUM
// ──────────────────────────────────────────────

func TestMarkCompleted_EitherOrder_FinalizesOnce(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		first  service.Actor
		second service.Actor
	}{
		{name: "rider first", first: rider, second: patient},
		{name: "patient first", first: patient, second: rider},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			resp := f.acceptReturning(t)
			ctx := context.Background()

			first, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: tc.first})
			if err != nil {
				t.Fatalf("first confirmation: %v", err)
			}
			if !first.Recorded || first.Finalized {
				t.Fatalf("expected recorded, not finalized; got %+v", first)
			}
			if first.Ride.Status == domain.RideStatusCompleted {
				t.Fatal("ride must not complete on a single confirmation")
			}

			second, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: tc.second})
			if err != nil {
				t.Fatalf("second confirmation: %v", err)
			}
			if !second.Finalized {
				t.Fatal("expected second confirmation to finalize")
			}
			if second.Ride.Status != domain.RideStatusCompleted || second.Ride.CompletionTime.IsZero() {
				t.Errorf("expected completed ride with completion time, got %s", second.Ride.Status)
			}

			appt, err := f.store.Appointments().GetByID(ctx, resp.Appointment.ID)
			if err != nil {
				t.Fatalf("get appointment: %v", err)
			}
			if appt.Status != domain.AppointmentStatusCompleted {
				t.Errorf("expected appointment completed, got %s", appt.Status)
			}
			if got := float64Value(appt.TotalCost); got != 790 {
				t.Errorf("expected total cost 790, got %v", got)
			}

			for _, userID := range []string{riderID, patientID} {
				notes, err := f.store.Notifications().ListByUser(ctx, userID, 0)
				if err != nil {
					t.Fatalf("list notifications: %v", err)
				}
				if len(notes) != 1 {
					t.Fatalf("expected 1 notification for %s, got %d", userID, len(notes))
				}
				if notes[0].Type != domain.NotificationTypeInvoice {
					t.Errorf("expected invoice notification, got %s", notes[0].Type)
				}
				id, ok := domain.ParseInvoiceAppointmentID(notes[0].Message)
				if !ok || id != resp.Appointment.ID {
					t.Errorf("expected invoice message for %s, got %q", resp.Appointment.ID, notes[0].Message)
				}
			}

			earnings, err := f.store.Earnings().ListByRider(ctx, riderID)
			if err != nil {
				t.Fatalf("list earnings: %v", err)
			}
			if len(earnings) != 1 {
				t.Fatalf("expected 1 earning, got %d", len(earnings))
			}
			if earnings[0].Amount != 790 || earnings[0].Commission != 79 || earnings[0].NetAmount != 711 {
				t.Errorf("unexpected earning %+v", earnings[0])
			}

			if got := len(f.bus.OfType(events.RideCompleted)); got != 1 {
				t.Errorf("expected 1 completed event, got %d", got)
			}
			if got := len(f.bus.OfType(events.NotificationCreated)); got != 2 {
				t.Errorf("expected 2 notification events, got %d", got)
			}
		})
	}
}

func TestMarkCompleted_RepeatsAreNoops(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.acceptReturning(t)
	ctx := context.Background()

	if _, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider}); err != nil {
		t.Fatalf("first confirmation: %v", err)
	}
	again, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider, WaitingMinutes: 10})
	if err != nil {
		t.Fatalf("repeat confirmation: %v", err)
	}
	if again.Recorded || again.Finalized {
		t.Errorf("expected repeat to be a no-op, got %+v", again)
	}
	if again.Ride.Fare.Total != 790 || again.Ride.WaitingMinutes != 0 {
		t.Errorf("expected fare unchanged at 790, got %v / %d min", again.Ride.Fare.Total, again.Ride.WaitingMinutes)
	}

	if _, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: patient}); err != nil {
		t.Fatalf("patient confirmation: %v", err)
	}
	after, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: patient})
	if err != nil {
		t.Fatalf("confirmation after completion: %v", err)
	}
	if after.Recorded {
		t.Error("expected confirmation on a completed ride to be a no-op")
	}

	earnings, err := f.store.Earnings().ListByRider(ctx, riderID)
	if err != nil {
		t.Fatalf("list earnings: %v", err)
	}
	if len(earnings) != 1 {
		t.Errorf("expected exactly 1 earning, got %d", len(earnings))
	}
}

func TestMarkCompleted_WaitingOwnedByRider(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.acceptReturning(t)
	ctx := context.Background()

	first, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider, WaitingMinutes: 10})
	if err != nil {
		t.Fatalf("rider confirmation: %v", err)
	}
	if first.WaitingCharge != 60 {
		t.Errorf("expected waiting charge 60, got %v", first.WaitingCharge)
	}
	if first.Ride.Fare.Total != 850 || first.Ride.Fare.WaitingFare != 60 {
		t.Errorf("expected total 850 with waiting 60, got %+v", first.Ride.Fare)
	}

	appt, err := f.store.Appointments().GetByID(ctx, resp.Appointment.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if got := float64Value(appt.TotalCost); got != 850 {
		t.Errorf("expected appointment total 850 after top-up, got %v", got)
	}

	// Both parties report the same wait; only the rider's figure is billable.
	_, err = f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: patient, WaitingMinutes: 10})
	if !errors.Is(err, service.ErrInvalidWaitingMinutes) {
		t.Fatalf("expected ErrInvalidWaitingMinutes for patient minutes, got %v", err)
	}
	ride, err := f.store.Rides().GetByID(ctx, resp.Ride.ID)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if ride.Fare.Total != 850 || ride.Status == domain.RideStatusCompleted {
		t.Errorf("expected rejected confirmation to leave the ride at 850 and open, got %v / %s", ride.Fare.Total, ride.Status)
	}

	final, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: patient})
	if err != nil {
		t.Fatalf("patient confirmation: %v", err)
	}
	if !final.Finalized {
		t.Fatal("expected patient confirmation to finalize")
	}
	if final.Ride.Fare.Total != 850 || final.Ride.WaitingMinutes != 10 {
		t.Errorf("expected final total 850 with 10 waiting minutes, got %v / %d", final.Ride.Fare.Total, final.Ride.WaitingMinutes)
	}
	if final.Earning == nil || final.Earning.Amount != 850 || final.Earning.Commission != 85 || final.Earning.NetAmount != 765 {
		t.Errorf("unexpected earning %+v", final.Earning)
	}
}

func TestMarkCompleted_PatientCannotAddCharges(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.acceptReturning(t)
	ctx := context.Background()

	_, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: patient, WaitingMinutes: 500})
	if !errors.Is(err, service.ErrInvalidWaitingMinutes) {
		t.Fatalf("expected ErrInvalidWaitingMinutes, got %v", err)
	}

	ride, err := f.store.Rides().GetByID(ctx, resp.Ride.ID)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if ride.Fare.Total != 790 || ride.Completion.Has(domain.PartyPatient) {
		t.Errorf("expected fare 790 with no patient confirmation, got %v / %+v", ride.Fare.Total, ride.Completion)
	}
}

func TestMarkCompleted_BeforeReturning_InvalidTransition(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)
	ctx := context.Background()

	for _, actor := range []service.Actor{rider, patient} {
		_, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: actor})
		if !errors.Is(err, service.ErrInvalidTransition) {
			t.Errorf("%s: expected ErrInvalidTransition at accepted, got %v", actor.UserID, err)
		}
	}

	f.advanceTo(t, resp.Ride.ID, domain.RideStatusPickup, domain.RideStatusEnRoute,
		domain.RideStatusAtHospital, domain.RideStatusInAppointment)
	_, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition at in_appointment, got %v", err)
	}

	ride, err := f.store.Rides().GetByID(ctx, resp.Ride.ID)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if ride.Status != domain.RideStatusInAppointment || ride.Completion.Has(domain.PartyRider) {
		t.Errorf("expected ride untouched at in_appointment, got %s / %+v", ride.Status, ride.Completion)
	}

	timeline, err := f.statusLog.Timeline(ctx, resp.Ride.ID, patient)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if last := timeline[len(timeline)-1]; last.Status != domain.RideStatusInAppointment {
		t.Errorf("expected timeline to end at in_appointment, got %s", last.Status)
	}
	if got := len(f.bus.OfType(events.CompletionConfirmed)); got != 0 {
		t.Errorf("expected no completion events, got %d", got)
	}
}

func TestMarkCompleted_NonParty_Forbidden(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)

	_, err := f.lifecycle.MarkCompleted(context.Background(), service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider2})
	if !errors.Is(err, service.ErrNotRideParty) {
		t.Errorf("expected ErrNotRideParty, got %v", err)
	}

	_, err = f.lifecycle.MarkCompleted(context.Background(), service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider, WaitingMinutes: -5})
	if !errors.Is(err, service.ErrInvalidWaitingMinutes) {
		t.Errorf("expected ErrInvalidWaitingMinutes, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 4. CANCELLATION
// ──────────────────────────────────────────────

func TestCancel_BlocksLaterTransitions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)
	ctx := context.Background()
	f.advanceTo(t, resp.Ride.ID, domain.RideStatusPickup)

	cancel, err := f.lifecycle.CancelRide(ctx, resp.Ride.ID, patient, "feeling better")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancel.Appointment.Status != domain.AppointmentStatusCancelled || cancel.Appointment.TotalCost != nil {
		t.Errorf("expected cancelled appointment without cost, got %s / %v", cancel.Appointment.Status, cancel.Appointment.TotalCost)
	}
	if cancel.Ride == nil || cancel.Ride.Status != domain.RideStatusCancelled {
		t.Fatal("expected ride to be cancelled")
	}
	if len(cancel.Notifications) != 1 || cancel.Notifications[0].UserID != riderID {
		t.Errorf("expected exactly one notification to the rider, got %+v", cancel.Notifications)
	}

	_, err = f.lifecycle.AdvanceStage(ctx, service.AdvanceStageRequest{RideID: resp.Ride.ID, Actor: rider, Status: domain.RideStatusEnRoute})
	if !errors.Is(err, service.ErrRideCancelled) {
		t.Errorf("expected ErrRideCancelled on advance, got %v", err)
	}
	_, err = f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider})
	if !errors.Is(err, service.ErrRideCancelled) {
		t.Errorf("expected ErrRideCancelled on completion, got %v", err)
	}
	_, err = f.lifecycle.CancelAppointment(ctx, service.CancelRequest{AppointmentID: resp.Appointment.ID, Actor: rider})
	if !errors.Is(err, service.ErrAlreadyCancelled) {
		t.Errorf("expected ErrAlreadyCancelled, got %v", err)
	}

	stage, err := f.statusLog.CurrentStage(ctx, resp.Ride.ID, patient)
	if err != nil {
		t.Fatalf("current stage: %v", err)
	}
	if stage != domain.RideStatusCancelled {
		t.Errorf("expected cancelled stage, got %s", stage)
	}
}

func TestCancel_AcceptedAppointment_ClearsRider(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)
	ctx := context.Background()

	cancel, err := f.lifecycle.CancelAppointment(ctx, service.CancelRequest{AppointmentID: resp.Appointment.ID, Actor: patient})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancel.Appointment.RiderID != "" {
		t.Errorf("expected response appointment without rider, got %q", cancel.Appointment.RiderID)
	}

	stored, err := f.store.Appointments().GetByID(ctx, resp.Appointment.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if stored.Status != domain.AppointmentStatusCancelled || stored.RiderID != "" || stored.TotalCost != nil {
		t.Errorf("expected cancelled unassigned appointment, got %s / %q / %v", stored.Status, stored.RiderID, stored.TotalCost)
	}

	ride, err := f.store.Rides().GetByID(ctx, resp.Ride.ID)
	if err != nil {
		t.Fatalf("get ride: %v", err)
	}
	if ride.RiderID != riderID || ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected cancelled ride to keep rider %s, got %q / %s", riderID, ride.RiderID, ride.Status)
	}

	if len(cancel.Notifications) != 1 || cancel.Notifications[0].UserID != riderID {
		t.Fatalf("expected one notification to the rider, got %+v", cancel.Notifications)
	}
	cancelled := f.bus.OfType(events.RideCancelled)
	if len(cancelled) != 1 || !cancelled[0].For(riderID) {
		t.Errorf("expected cancellation event addressed to the rider, got %+v", cancelled)
	}

	if _, err := f.lifecycle.GetRide(ctx, resp.Ride.ID, rider); err != nil {
		t.Errorf("expected rider to keep access to the cancelled ride: %v", err)
	}
}

func TestCancel_PendingAppointment_NoCounterparty(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	appt := f.book(t)

	resp, err := f.lifecycle.CancelAppointment(context.Background(), service.CancelRequest{AppointmentID: appt.ID, Actor: patient})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if resp.Ride != nil {
		t.Error("expected no ride for a pending appointment")
	}
	if len(resp.Notifications) != 0 {
		t.Errorf("expected no notifications, got %d", len(resp.Notifications))
	}

	_, err = f.lifecycle.AcceptRide(context.Background(), service.AcceptRideRequest{AppointmentID: appt.ID, RiderID: riderID})
	if !errors.Is(err, service.ErrAppointmentAlreadyClaimed) {
		t.Errorf("expected cancelled appointment to be unclaimable, got %v", err)
	}
}

func TestCancel_CompletedAppointment_Rejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.acceptReturning(t)
	ctx := context.Background()

	for _, actor := range []service.Actor{rider, patient} {
		if _, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: actor}); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	_, err := f.lifecycle.CancelAppointment(ctx, service.CancelRequest{AppointmentID: resp.Appointment.ID, Actor: patient})
	if !errors.Is(err, service.ErrCannotCancel) {
		t.Errorf("expected ErrCannotCancel, got %v", err)
	}
}

func TestCancel_AdminNotifiesBothParties(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	resp := f.accept(t)

	cancel, err := f.lifecycle.CancelAppointment(context.Background(), service.CancelRequest{
		AppointmentID: resp.Appointment.ID,
		Actor:         admin,
		Reason:        "vehicle unavailable",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(cancel.Notifications) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(cancel.Notifications))
	}

	_, err = f.lifecycle.CancelAppointment(context.Background(), service.CancelRequest{
		AppointmentID: f.book(t).ID,
		Actor:         rider2,
	})
	if !errors.Is(err, service.ErrNotAppointmentParty) {
		t.Errorf("expected unrelated rider to be refused, got %v", err)
	}
}
