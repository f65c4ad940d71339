package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
)

// bookingRepo implements domain.BookingRepository using SQLite.
type bookingRepo struct {
	db *sql.DB
}

const bookingColumns = `id, client_name, client_email, client_phone, service_name, booking_date, status, notes, created_at`

func scanBooking(row interface{ Scan(...any) error }) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.ClientName, &b.ClientEmail, &b.ClientPhone, &b.ServiceName,
		&b.BookingDate, &b.Status, &b.Notes, &b.CreatedAt)
	return b, err
}

func (r *bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	now := time.Now().UTC()
	if booking.Status == "" {
		booking.Status = domain.BookingPending
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (client_name, client_email, client_phone, service_name, booking_date, status, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ClientName, booking.ClientEmail, booking.ClientPhone, booking.ServiceName,
		booking.BookingDate.UTC(), string(booking.Status), booking.Notes, now,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get booking id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	return nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query booking: %w", err)
	}
	return &b, nil
}

func (r *bookingRepo) List(ctx context.Context, offset, limit int) ([]domain.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY booking_date DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset)
}

func (r *bookingRepo) ListActive(ctx context.Context) ([]domain.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE status IN (?, ?)
		 ORDER BY booking_date, id`,
		string(domain.BookingPending), string(domain.BookingConfirmed))
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return requireAffected(res, "update booking status")
}

func (r *bookingRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return requireAffected(res, "delete booking")
}

func (r *bookingRepo) query(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
