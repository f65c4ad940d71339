package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
)

func TestBookingRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := db.Bookings()
	ctx := context.Background()

	date := time.Date(2030, 6, 1, 14, 0, 0, 0, time.UTC)
	phone := "+48 600 000 000"
	b := &domain.Booking{
		ClientName:  "Ada",
		ClientEmail: "ada@example.com",
		ClientPhone: &phone,
		ServiceName: "Portrait session",
		BookingDate: date,
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != domain.BookingPending {
		t.Fatalf("expected default status pending, got %q", b.Status)
	}

	got, err := repo.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.BookingDate.Equal(date) {
		t.Fatalf("expected booking date %v, got %v", date, got.BookingDate)
	}
	if got.ClientPhone == nil || *got.ClientPhone != phone || got.Notes != nil {
		t.Fatalf("unexpected optional fields: phone=%v notes=%v", got.ClientPhone, got.Notes)
	}

	if err := repo.UpdateStatus(ctx, b.ID, domain.BookingConfirmed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = repo.GetByID(ctx, b.ID)
	if got.Status != domain.BookingConfirmed {
		t.Fatalf("expected confirmed, got %q", got.Status)
	}

	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, b.ID, domain.BookingRejected); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingRepository_ListActive(t *testing.T) {
	db := newTestDB(t)
	repo := db.Bookings()
	ctx := context.Background()

	base := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	statuses := []domain.BookingStatus{
		domain.BookingConfirmed,
		domain.BookingCancelled,
		domain.BookingPending,
		domain.BookingRejected,
	}
	for i, s := range statuses {
		b := &domain.Booking{
			ClientName:  "c",
			ClientEmail: "c@example.com",
			ServiceName: "s",
			// Later bookings first so ordering is observable.
			BookingDate: base.AddDate(0, 0, len(statuses)-i),
			Status:      s,
		}
		if err := repo.Create(ctx, b); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active bookings, got %d", len(active))
	}
	if active[0].Status != domain.BookingPending || active[1].Status != domain.BookingConfirmed {
		t.Fatalf("expected pending (sooner) then confirmed, got %q, %q", active[0].Status, active[1].Status)
	}

	all, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 bookings, got %d", len(all))
	}
}
