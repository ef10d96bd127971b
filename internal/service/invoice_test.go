package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"medride/internal/service"
)

func TestInvoice_ReadyOnlyAfterCompletion(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	pending := f.book(t)
	if _, err := f.invoices.Get(ctx, pending.ID, patient); !errors.Is(err, service.ErrInvoiceNotReady) {
		t.Errorf("expected ErrInvoiceNotReady without a ride, got %v", err)
	}

	resp := f.acceptReturning(t)
	if _, err := f.invoices.Get(ctx, resp.Appointment.ID, patient); !errors.Is(err, service.ErrInvoiceNotReady) {
		t.Errorf("expected ErrInvoiceNotReady before completion, got %v", err)
	}

	if _, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: rider, WaitingMinutes: 5}); err != nil {
		t.Fatalf("rider confirmation: %v", err)
	}
	if _, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: patient}); err != nil {
		t.Fatalf("patient confirmation: %v", err)
	}

	inv, err := f.invoices.Get(ctx, resp.Appointment.ID, patient)
	if err != nil {
		t.Fatalf("get invoice: %v", err)
	}
	if inv.Fare.Total != 820 || inv.WaitingMinutes != 5 {
		t.Errorf("expected total 820 with 5 waiting minutes, got %v / %d", inv.Fare.Total, inv.WaitingMinutes)
	}
	if inv.Rider == nil || inv.Rider.FullName != "Kamal Silva" {
		t.Errorf("expected rider profile on invoice, got %+v", inv.Rider)
	}

	text := f.invoices.Format(inv)
	for _, want := range []string{"TOTAL:           Rs 820.00", "Waiting:         Rs 30.00", "National Hospital", resp.Appointment.ID} {
		if !strings.Contains(text, want) {
			t.Errorf("expected invoice text to contain %q", want)
		}
	}

	if _, err := f.invoices.Get(ctx, resp.Appointment.ID, rider2); !errors.Is(err, service.ErrNotAppointmentParty) {
		t.Errorf("expected ErrNotAppointmentParty for an unrelated rider, got %v", err)
	}
}

func TestEarnings_Totals(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for range 2 {
		resp := f.acceptReturning(t)
		for _, actor := range []service.Actor{rider, patient} {
			if _, err := f.lifecycle.MarkCompleted(ctx, service.MarkCompletedRequest{RideID: resp.Ride.ID, Actor: actor}); err != nil {
				t.Fatalf("complete: %v", err)
			}
		}
	}

	summary, err := f.earnings.ListForRider(ctx, rider)
	if err != nil {
		t.Fatalf("list earnings: %v", err)
	}
	if len(summary.Earnings) != 2 {
		t.Fatalf("expected 2 earnings, got %d", len(summary.Earnings))
	}
	if summary.TotalAmount != 1580 || summary.TotalCommission != 158 || summary.TotalNet != 1422 {
		t.Errorf("unexpected totals %+v", summary)
	}

	if _, err := f.earnings.ListForRider(ctx, patient); !errors.Is(err, service.ErrNotRider) {
		t.Errorf("expected ErrNotRider, got %v", err)
	}
}
