package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"medride/internal/repository"
	"medride/internal/service"
)

func TestBook_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	date := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		req     service.BookRequest
		wantErr error
	}{
		{
			name:    "rider cannot book",
			req:     service.BookRequest{Actor: rider, HospitalName: "H", HospitalAddress: "A", PickupLocation: "P", AppointmentDate: date},
			wantErr: service.ErrForbidden,
		},
		{
			name:    "missing hospital",
			req:     service.BookRequest{Actor: patient, HospitalAddress: "A", PickupLocation: "P", AppointmentDate: date},
			wantErr: service.ErrInvalidBooking,
		},
		{
			name:    "blank pickup",
			req:     service.BookRequest{Actor: patient, HospitalName: "H", HospitalAddress: "A", PickupLocation: "  ", AppointmentDate: date},
			wantErr: service.ErrInvalidBooking,
		},
		{
			name:    "missing date",
			req:     service.BookRequest{Actor: patient, HospitalName: "H", HospitalAddress: "A", PickupLocation: "P"},
			wantErr: service.ErrInvalidBooking,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.appointments.Book(context.Background(), tc.req); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestListAvailable_ExcludesClaimed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	open := f.book(t)
	claimed := f.accept(t)

	list, err := f.appointments.ListAvailable(ctx, rider2, 0)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(list) != 1 || list[0].ID != open.ID {
		t.Errorf("expected only %s available, got %d entries", open.ID, len(list))
	}

	if _, err := f.appointments.ListAvailable(ctx, patient, 0); !errors.Is(err, service.ErrNotRider) {
		t.Errorf("expected ErrNotRider for patients, got %v", err)
	}

	mine, err := f.appointments.ListForUser(ctx, rider, 0)
	if err != nil {
		t.Fatalf("list for rider: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != claimed.Appointment.ID {
		t.Errorf("expected the rider's claimed appointment, got %d entries", len(mine))
	}

	all, err := f.appointments.ListForUser(ctx, patient, 0)
	if err != nil {
		t.Fatalf("list for patient: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 patient appointments, got %d", len(all))
	}
}

func TestGetAppointment_Visibility(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	resp := f.accept(t)

	if _, err := f.appointments.Get(ctx, resp.Appointment.ID, rider); err != nil {
		t.Errorf("assigned rider should see the appointment: %v", err)
	}
	if _, err := f.appointments.Get(ctx, resp.Appointment.ID, rider2); !errors.Is(err, service.ErrNotAppointmentParty) {
		t.Errorf("expected another rider to be refused once claimed, got %v", err)
	}
}

func TestDeleteAppointment_AdminOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	resp := f.accept(t)

	if err := f.appointments.Delete(ctx, resp.Appointment.ID, patient); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := f.appointments.Delete(ctx, resp.Appointment.ID, admin); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.store.Rides().GetByID(ctx, resp.Ride.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ride removed with the appointment, got %v", err)
	}
	if err := f.appointments.Delete(ctx, resp.Appointment.ID, admin); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
