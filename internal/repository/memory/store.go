// Package memory is an in-process implementation of repository.Store.
// A single mutex serializes every transaction, so conditional writes behave
// like row locks held for the whole unit of work.
package memory

import (
	"context"
	"sort"
	"sync"

	"medride/internal/domain"
	"medride/internal/repository"
)

type tables struct {
	profiles      map[string]domain.Profile
	appointments  map[string]domain.Appointment
	rides         map[string]domain.Ride
	updates       []domain.StatusUpdate
	notifications []domain.Notification
	earnings      []domain.Earning
	seq           int64
}

func newTables() *tables {
	return &tables{
		profiles:     make(map[string]domain.Profile),
		appointments: make(map[string]domain.Appointment),
		rides:        make(map[string]domain.Ride),
	}
}

func (t *tables) clone() *tables {
	out := &tables{
		profiles:      make(map[string]domain.Profile, len(t.profiles)),
		appointments:  make(map[string]domain.Appointment, len(t.appointments)),
		rides:         make(map[string]domain.Ride, len(t.rides)),
		updates:       append([]domain.StatusUpdate(nil), t.updates...),
		notifications: append([]domain.Notification(nil), t.notifications...),
		earnings:      append([]domain.Earning(nil), t.earnings...),
		seq:           t.seq,
	}
	for k, v := range t.profiles {
		out.profiles[k] = v
	}
	for k, v := range t.appointments {
		out.appointments[k] = copyAppointment(v)
	}
	for k, v := range t.rides {
		out.rides[k] = copyRide(v)
	}
	return out
}

func copyAppointment(a domain.Appointment) domain.Appointment {
	if a.TotalCost != nil {
		total := *a.TotalCost
		a.TotalCost = &total
	}
	return a
}

func copyRide(r domain.Ride) domain.Ride {
	r.Completion = r.Completion.Clone()
	return r
}

// Store is an in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	data *tables
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newTables()}
}

var _ repository.Store = (*Store)(nil)

// AddProfile inserts or replaces a profile.
func (s *Store) AddProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.profiles[p.ID] = p
}

// InTx runs fn while holding the store lock. On error every write made through tx is discarded.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(view{s: s, locked: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Profiles returns a repository that runs each call on its own.
func (s *Store) Profiles() repository.ProfileRepository {
	return view{s: s}.Profiles()
}

func (s *Store) Appointments() repository.AppointmentRepository {
	return view{s: s}.Appointments()
}

func (s *Store) Rides() repository.RideRepository {
	return view{s: s}.Rides()
}

func (s *Store) StatusUpdates() repository.StatusUpdateRepository {
	return view{s: s}.StatusUpdates()
}

func (s *Store) Notifications() repository.NotificationRepository {
	return view{s: s}.Notifications()
}

func (s *Store) Earnings() repository.EarningRepository {
	return view{s: s}.Earnings()
}

// view binds repositories to the store. Inside InTx the lock is already held.
type view struct {
	s      *Store
	locked bool
}

func (v view) do(fn func(t *tables) error) error {
	if !v.locked {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	return fn(v.s.data)
}

func (v view) Profiles() repository.ProfileRepository           { return profileRepo{v} }
func (v view) Appointments() repository.AppointmentRepository   { return appointmentRepo{v} }
func (v view) Rides() repository.RideRepository                 { return rideRepo{v} }
func (v view) StatusUpdates() repository.StatusUpdateRepository { return statusUpdateRepo{v} }
func (v view) Notifications() repository.NotificationRepository { return notificationRepo{v} }
func (v view) Earnings() repository.EarningRepository           { return earningRepo{v} }

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

func truncate[T any](items []T, limit int) []T {
	if n := limitOrDefault(limit); len(items) > n {
		return items[:n]
	}
	return items
}

func sortNewestFirst[T any](items []T, createdAt func(T) int64) {
	sort.SliceStable(items, func(i, j int) bool { return createdAt(items[i]) > createdAt(items[j]) })
}
