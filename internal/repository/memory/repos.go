package memory

import (
	"context"
	"sort"
	"time"

	"medride/internal/domain"
	"medride/internal/repository"
)

type profileRepo struct{ v view }

func (r profileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	var out *domain.Profile
	err := r.v.do(func(t *tables) error {
		p, ok := t.profiles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

type appointmentRepo struct{ v view }

func (r appointmentRepo) Create(_ context.Context, appt *domain.Appointment) error {
	return r.v.do(func(t *tables) error {
		if _, ok := t.appointments[appt.ID]; ok {
			return repository.ErrConflict
		}
		t.appointments[appt.ID] = copyAppointment(*appt)
		return nil
	})
}

func (r appointmentRepo) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	var out *domain.Appointment
	err := r.v.do(func(t *tables) error {
		a, ok := t.appointments[id]
		if !ok {
			return repository.ErrNotFound
		}
		a = copyAppointment(a)
		out = &a
		return nil
	})
	return out, err
}

func (r appointmentRepo) GetForUpdate(ctx context.Context, id string) (*domain.Appointment, error) {
	return r.GetByID(ctx, id)
}

func (r appointmentRepo) filter(limit int, keep func(a domain.Appointment) bool, newestFirst bool) ([]*domain.Appointment, error) {
	var out []*domain.Appointment
	err := r.v.do(func(t *tables) error {
		for _, a := range t.appointments {
			if keep(a) {
				a = copyAppointment(a)
				out = append(out, &a)
			}
		}
		return nil
	})
	if newestFirst {
		sortNewestFirst(out, func(a *domain.Appointment) int64 { return a.CreatedAt.UnixNano() })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	}
	return truncate(out, limit), err
}

func (r appointmentRepo) ListAvailable(_ context.Context, limit int) ([]*domain.Appointment, error) {
	return r.filter(limit, func(a domain.Appointment) bool { return a.IsClaimable() }, false)
}

func (r appointmentRepo) ListByPatient(_ context.Context, patientID string, limit int) ([]*domain.Appointment, error) {
	return r.filter(limit, func(a domain.Appointment) bool { return a.PatientID == patientID }, true)
}

func (r appointmentRepo) ListByRider(_ context.Context, riderID string, limit int) ([]*domain.Appointment, error) {
	return r.filter(limit, func(a domain.Appointment) bool { return a.RiderID == riderID }, true)
}

func (r appointmentRepo) ListAll(_ context.Context, limit int) ([]*domain.Appointment, error) {
	return r.filter(limit, func(domain.Appointment) bool { return true }, true)
}

func (r appointmentRepo) Claim(_ context.Context, id, riderID string, totalCost float64, at time.Time) (*domain.Appointment, error) {
	var out *domain.Appointment
	err := r.v.do(func(t *tables) error {
		a, ok := t.appointments[id]
		if !ok {
			return repository.ErrNotFound
		}
		if !a.IsClaimable() {
			return repository.ErrConflict
		}
		a.RiderID = riderID
		a.Status = domain.AppointmentStatusAccepted
		a.TotalCost = &totalCost
		a.UpdatedAt = at
		t.appointments[id] = a
		a = copyAppointment(a)
		out = &a
		return nil
	})
	return out, err
}

func (r appointmentRepo) TransitionStatus(_ context.Context, id string, from []domain.AppointmentStatus, to domain.AppointmentStatus, at time.Time) error {
	return r.v.do(func(t *tables) error {
		a, ok := t.appointments[id]
		if !ok {
			return repository.ErrNotFound
		}
		for _, s := range from {
			if a.Status == s {
				a.Status = to
				a.UpdatedAt = at
				t.appointments[id] = a
				return nil
			}
		}
		return repository.ErrConflict
	})
}

func (r appointmentRepo) Cancel(_ context.Context, id string, from []domain.AppointmentStatus, at time.Time) error {
	return r.v.do(func(t *tables) error {
		a, ok := t.appointments[id]
		if !ok {
			return repository.ErrNotFound
		}
		for _, s := range from {
			if a.Status == s {
				a.Status = domain.AppointmentStatusCancelled
				a.RiderID = ""
				a.TotalCost = nil
				a.UpdatedAt = at
				t.appointments[id] = a
				return nil
			}
		}
		return repository.ErrConflict
	})
}

func (r appointmentRepo) SetTotalCost(_ context.Context, id string, totalCost *float64, at time.Time) error {
	return r.v.do(func(t *tables) error {
		a, ok := t.appointments[id]
		if !ok {
			return repository.ErrNotFound
		}
		a.TotalCost = nil
		if totalCost != nil {
			total := *totalCost
			a.TotalCost = &total
		}
		a.UpdatedAt = at
		t.appointments[id] = a
		return nil
	})
}

func (r appointmentRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(t *tables) error {
		if _, ok := t.appointments[id]; !ok {
			return repository.ErrNotFound
		}
		delete(t.appointments, id)

		removed := make(map[string]bool)
		for rideID, ride := range t.rides {
			if ride.AppointmentID == id {
				removed[rideID] = true
				delete(t.rides, rideID)
			}
		}
		if len(removed) == 0 {
			return nil
		}

		updates := t.updates[:0]
		for _, u := range t.updates {
			if !removed[u.RideID] {
				updates = append(updates, u)
			}
		}
		t.updates = updates

		earnings := t.earnings[:0]
		for _, e := range t.earnings {
			if !removed[e.RideID] {
				earnings = append(earnings, e)
			}
		}
		t.earnings = earnings
		return nil
	})
}

type rideRepo struct{ v view }

func (r rideRepo) Create(_ context.Context, ride *domain.Ride) error {
	return r.v.do(func(t *tables) error {
		if _, ok := t.rides[ride.ID]; ok {
			return repository.ErrConflict
		}
		for _, existing := range t.rides {
			if existing.AppointmentID == ride.AppointmentID {
				return repository.ErrConflict
			}
		}
		t.rides[ride.ID] = copyRide(*ride)
		return nil
	})
}

func (r rideRepo) find(match func(domain.Ride) bool) (*domain.Ride, error) {
	var out *domain.Ride
	err := r.v.do(func(t *tables) error {
		for _, ride := range t.rides {
			if match(ride) {
				ride = copyRide(ride)
				out = &ride
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r rideRepo) GetByID(_ context.Context, id string) (*domain.Ride, error) {
	return r.find(func(ride domain.Ride) bool { return ride.ID == id })
}

func (r rideRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r rideRepo) GetByAppointmentID(_ context.Context, appointmentID string) (*domain.Ride, error) {
	return r.find(func(ride domain.Ride) bool { return ride.AppointmentID == appointmentID })
}

func (r rideRepo) GetByAppointmentIDForUpdate(ctx context.Context, appointmentID string) (*domain.Ride, error) {
	return r.GetByAppointmentID(ctx, appointmentID)
}

func (r rideRepo) list(limit int, keep func(domain.Ride) bool) ([]*domain.Ride, error) {
	var out []*domain.Ride
	err := r.v.do(func(t *tables) error {
		for _, ride := range t.rides {
			if keep(ride) {
				ride = copyRide(ride)
				out = append(out, &ride)
			}
		}
		return nil
	})
	sortNewestFirst(out, func(ride *domain.Ride) int64 { return ride.CreatedAt.UnixNano() })
	return truncate(out, limit), err
}

func (r rideRepo) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Ride, error) {
	return r.list(limit, func(ride domain.Ride) bool { return ride.RiderID == userID || ride.PatientID == userID })
}

func (r rideRepo) ListAll(_ context.Context, limit int) ([]*domain.Ride, error) {
	return r.list(limit, func(domain.Ride) bool { return true })
}

func (r rideRepo) Update(_ context.Context, ride *domain.Ride, expected domain.RideStatus) error {
	return r.v.do(func(t *tables) error {
		stored, ok := t.rides[ride.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Status != expected {
			return repository.ErrConflict
		}
		stored.Status = ride.Status
		stored.WaitingMinutes = ride.WaitingMinutes
		stored.Fare.WaitingFare = ride.Fare.WaitingFare
		stored.Fare.Total = ride.Fare.Total
		stored.PatientNotes = ride.PatientNotes
		stored.RiderNotes = ride.RiderNotes
		stored.PickupTime = ride.PickupTime
		stored.CompletionTime = ride.CompletionTime
		stored.UpdatedAt = ride.UpdatedAt
		t.rides[ride.ID] = stored
		return nil
	})
}

func (r rideRepo) AddCompletion(_ context.Context, rideID string, party domain.Party, at time.Time) (bool, error) {
	var added bool
	err := r.v.do(func(t *tables) error {
		ride, ok := t.rides[rideID]
		if !ok {
			return repository.ErrNotFound
		}
		ride.Completion = ride.Completion.Clone()
		added = ride.Completion.Confirm(party, at)
		t.rides[rideID] = ride
		return nil
	})
	return added, err
}

type statusUpdateRepo struct{ v view }

func (r statusUpdateRepo) Append(_ context.Context, update *domain.StatusUpdate) error {
	return r.v.do(func(t *tables) error {
		t.seq++
		update.Seq = t.seq
		t.updates = append(t.updates, *update)
		return nil
	})
}

func (r statusUpdateRepo) ListByRide(_ context.Context, rideID string) ([]*domain.StatusUpdate, error) {
	var out []*domain.StatusUpdate
	err := r.v.do(func(t *tables) error {
		for _, u := range t.updates {
			if u.RideID == rideID {
				out = append(out, &u)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, err
}

func (r statusUpdateRepo) Latest(ctx context.Context, rideID string) (*domain.StatusUpdate, error) {
	updates, err := r.ListByRide(ctx, rideID)
	if err != nil || len(updates) == 0 {
		return nil, err
	}
	return updates[len(updates)-1], nil
}

type notificationRepo struct{ v view }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	return r.v.do(func(t *tables) error {
		t.notifications = append(t.notifications, *n)
		return nil
	})
}

func (r notificationRepo) ListByUser(_ context.Context, userID string, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.v.do(func(t *tables) error {
		for _, n := range t.notifications {
			if n.UserID == userID {
				out = append(out, &n)
			}
		}
		return nil
	})
	sortNewestFirst(out, func(n *domain.Notification) int64 { return n.CreatedAt.UnixNano() })
	return truncate(out, limit), err
}

func (r notificationRepo) MarkRead(_ context.Context, id, userID string) error {
	return r.v.do(func(t *tables) error {
		for i := range t.notifications {
			if t.notifications[i].ID == id && t.notifications[i].UserID == userID {
				t.notifications[i].IsRead = true
				return nil
			}
		}
		return repository.ErrNotFound
	})
}

func (r notificationRepo) CountUnread(_ context.Context, userID string) (int, error) {
	var count int
	err := r.v.do(func(t *tables) error {
		for _, n := range t.notifications {
			if n.UserID == userID && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

type earningRepo struct{ v view }

func (r earningRepo) Create(_ context.Context, e *domain.Earning) error {
	return r.v.do(func(t *tables) error {
		for _, existing := range t.earnings {
			if existing.RideID == e.RideID {
				return repository.ErrConflict
			}
		}
		t.earnings = append(t.earnings, *e)
		return nil
	})
}

func (r earningRepo) ListByRider(_ context.Context, riderID string) ([]*domain.Earning, error) {
	var out []*domain.Earning
	err := r.v.do(func(t *tables) error {
		for _, e := range t.earnings {
			if e.RiderID == riderID {
				out = append(out, &e)
			}
		}
		return nil
	})
	sortNewestFirst(out, func(e *domain.Earning) int64 { return e.CreatedAt.UnixNano() })
	return out, err
}
