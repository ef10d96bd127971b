package service_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"medride/internal/domain"
	"medride/internal/events"
	"medride/internal/repository/memory"
	"medride/internal/routing"
	"medride/internal/service"
)

const (
	patientID = "patient-1"
	riderID   = "rider-1"
	rider2ID  = "rider-2"
	adminID   = "admin-1"
)

var (
	patient = service.Actor{UserID: patientID, Role: domain.RolePatient}
	rider   = service.Actor{UserID: riderID, Role: domain.RoleRider}
	rider2  = service.Actor{UserID: rider2ID, Role: domain.RoleRider}
	admin   = service.Actor{UserID: adminID, Role: domain.RoleAdmin}
)

// ──────────────────────────────────────────────
// FAKES
// ──────────────────────────────────────────────

// tickClock returns a strictly increasing time on every call.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickClock() *tickClock {
	return &tickClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

// rewind steps the clock back by d, as an NTP correction would.
func (c *tickClock) rewind(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(-d)
}

// recordingBus records every published event.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) OfType(t events.Type) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeEstimator returns a fixed one-way estimate or an error.
type fakeEstimator struct {
	mu       sync.Mutex
	estimate routing.RouteEstimate
	err      error
	calls    int
}

func (f *fakeEstimator) EstimateRoundTrip(ctx context.Context, pickup, destination string) (*routing.RouteEstimate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	est := f.estimate
	return &est, nil
}

// fakeLocker grants the accept lock unless Held is set.
type fakeLocker struct {
	mu       sync.Mutex
	Held     bool
	Err      error
	released []string
}

func (l *fakeLocker) AcquireAcceptLock(ctx context.Context, appointmentID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return false, l.Err
	}
	return !l.Held, nil
}

func (l *fakeLocker) ReleaseAcceptLock(ctx context.Context, appointmentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released = append(l.released, appointmentID)
	return nil
}

// ──────────────────────────────────────────────
// FIXTURE
// ──────────────────────────────────────────────

type fixture struct {
	clock         *tickClock
	store         *memory.Store
	bus           *recordingBus
	estimator     *fakeEstimator
	locker        *fakeLocker
	lifecycle     *service.LifecycleService
	appointments  *service.AppointmentService
	notifications *service.NotificationService
	statusLog     *service.StatusLogService
	invoices      *service.InvoiceService
	earnings      *service.EarningService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	store.AddProfile(domain.Profile{ID: patientID, Role: domain.RolePatient, FullName: "Nimal Perera"})
	store.AddProfile(domain.Profile{ID: riderID, Role: domain.RoleRider, FullName: "Kamal Silva"})
	store.AddProfile(domain.Profile{ID: rider2ID, Role: domain.RoleRider, FullName: "Sunil Fernando"})
	store.AddProfile(domain.Profile{ID: adminID, Role: domain.RoleAdmin, FullName: "Ops"})

	clock := newTickClock()
	bus := &recordingBus{}
	estimator := &fakeEstimator{estimate: routing.RouteEstimate{DistanceKm: 5.123, DurationMinutes: 12.4}}
	locker := &fakeLocker{}

	notifications := service.NewNotificationService(store, bus, logger, clock.Now)
	lifecycle := service.NewLifecycleService(store, estimator, locker, notifications, bus, logger, clock.Now,
		service.LifecycleConfig{CommissionRate: 0.10, AcceptLockTTL: time.Second})

	return &fixture{
		clock:         clock,
		store:         store,
		bus:           bus,
		estimator:     estimator,
		locker:        locker,
		lifecycle:     lifecycle,
		appointments:  service.NewAppointmentService(store, logger, clock.Now),
		notifications: notifications,
		statusLog:     service.NewStatusLogService(store),
		invoices:      service.NewInvoiceService(store),
		earnings:      service.NewEarningService(store),
	}
}

func (f *fixture) addRiders(t *testing.T, n int) []service.Actor {
	t.Helper()
	out := make([]service.Actor, n)
	for i := range n {
		id := fmt.Sprintf("rider-extra-%d", i)
		f.store.AddProfile(domain.Profile{ID: id, Role: domain.RoleRider})
		out[i] = service.Actor{UserID: id, Role: domain.RoleRider}
	}
	return out
}

func (f *fixture) book(t *testing.T) *domain.Appointment {
	t.Helper()
	appt, err := f.appointments.Book(context.Background(), service.BookRequest{
		Actor:           patient,
		HospitalName:    "National Hospital",
		HospitalAddress: "Regent St, Colombo 10",
		AppointmentDate: time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC),
		PickupLocation:  "12 Galle Rd, Colombo 03",
	})
	if err != nil {
		t.Fatalf("book appointment: %v", err)
	}
	return appt
}

// accept books an appointment and has riderID accept it at 10.25 km / 25 min (Rs 790).
func (f *fixture) accept(t *testing.T) *service.AcceptRideResponse {
	t.Helper()
	appt := f.book(t)
	resp, err := f.lifecycle.AcceptRide(context.Background(), service.AcceptRideRequest{
		AppointmentID:            appt.ID,
		RiderID:                  riderID,
		RoundTripDistanceKm:      10.25,
		RoundTripDurationMinutes: 25,
	})
	if err != nil {
		t.Fatalf("accept ride: %v", err)
	}
	return resp
}

func (f *fixture) advanceTo(t *testing.T, rideID string, stages ...domain.RideStatus) {
	t.Helper()
	for _, st := range stages {
		_, err := f.lifecycle.AdvanceStage(context.Background(), service.AdvanceStageRequest{
			RideID: rideID,
			Actor:  rider,
			Status: st,
		})
		if err != nil {
			t.Fatalf("advance to %s: %v", st, err)
		}
	}
}

// acceptReturning accepts a ride and drives it to returning, the only stage
// from which it can be confirmed as completed.
func (f *fixture) acceptReturning(t *testing.T) *service.AcceptRideResponse {
	t.Helper()
	resp := f.accept(t)
	f.advanceTo(t, resp.Ride.ID,
		domain.RideStatusPickup,
		domain.RideStatusEnRoute,
		domain.RideStatusAtHospital,
		domain.RideStatusInAppointment,
		domain.RideStatusReturning,
	)
	return resp
}

func float64Value(p *float64) float64 {
	if p == nil {
		return -1
	}
	return *p
}
