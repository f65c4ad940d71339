package domain

import (
	"context"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

// Booking is a session inquiry submitted through the public contact form.
type Booking struct {
	ID          int64
	ClientName  string
	ClientEmail string
	ClientPhone *string
	ServiceName string
	BookingDate time.Time
	Status      BookingStatus
	Notes       *string
	CreatedAt   time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	List(ctx context.Context, offset, limit int) ([]Booking, error)
	// ListActive returns bookings that still occupy a slot (pending or
	// confirmed), soonest first.
	ListActive(ctx context.Context) ([]Booking, error)
	UpdateStatus(ctx context.Context, id int64, status BookingStatus) error
	Delete(ctx context.Context, id int64) error
}
