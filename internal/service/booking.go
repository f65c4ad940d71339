package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
)

// BookingRequest is a session inquiry from the public contact form.
type BookingRequest struct {
	ClientName  string
	ClientEmail string
	ClientPhone *string
	ServiceName string
	BookingDate time.Time
	Notes       *string
}

// BookingService handles booking inquiries and their status.
type BookingService struct {
	bookings domain.BookingRepository
}

// NewBookingService creates a new BookingService.
func NewBookingService(bookings domain.BookingRepository) *BookingService {
	return &BookingService{bookings: bookings}
}

// Create validates and stores a pending booking. The requested date must
// not lie in the past.
func (s *BookingService) Create(ctx context.Context, in BookingRequest) (*domain.Booking, error) {
	name := strings.TrimSpace(in.ClientName)
	serviceName := strings.TrimSpace(in.ServiceName)
	email := strings.TrimSpace(in.ClientEmail)

	if name == "" || serviceName == "" {
		return nil, fmt.Errorf("%w: client name and service name are required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if in.BookingDate.IsZero() {
		return nil, fmt.Errorf("%w: booking date is required", domain.ErrInvalidInput)
	}
	if in.BookingDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: booking date is in the past", domain.ErrInvalidInput)
	}

	booking := &domain.Booking{
		ClientName:  name,
		ClientEmail: email,
		ClientPhone: trimOptional(in.ClientPhone),
		ServiceName: serviceName,
		BookingDate: in.BookingDate,
		Status:      domain.BookingPending,
		Notes:       trimOptional(in.Notes),
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return booking, nil
}

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// List returns a page of all bookings, newest date first.
func (s *BookingService) List(ctx context.Context, skip, limit int) ([]domain.Booking, error) {
	skip, limit = normalizePage(skip, limit)
	bookings, err := s.bookings.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// ListOccupied returns bookings that still hold their slot, i.e. neither
// cancelled nor rejected.
func (s *BookingService) ListOccupied(ctx context.Context) ([]domain.Booking, error) {
	bookings, err := s.bookings.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatus moves a booking to a new status.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	if err := s.bookings.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a booking.
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	if err := s.bookings.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}
