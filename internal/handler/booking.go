package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
	"github.com/msomdec/portfolio-api/internal/service"
)

// BookingHandler serves the public inquiry form and the admin booking list.
type BookingHandler struct {
	bookings *service.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// HandleCreate stores a booking inquiry.
// POST /api/v1/bookings/
// Request: {"client_name","client_email","client_phone"?,"service_name","booking_date","notes"?}
func (h *BookingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientName  string    `json:"client_name"`
		ClientEmail string    `json:"client_email"`
		ClientPhone *string   `json:"client_phone"`
		ServiceName string    `json:"service_name"`
		BookingDate time.Time `json:"booking_date"`
		Notes       *string   `json:"notes"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	booking, err := h.bookings.Create(r.Context(), service.BookingRequest{
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		ServiceName: req.ServiceName,
		BookingDate: req.BookingDate,
		Notes:       req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, "create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(booking))
}

// HandleList lists all bookings for the admin.
// GET /api/v1/bookings/
func (h *BookingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r)
	bookings, err := h.bookings.List(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, r, "list bookings", err)
		return
	}
	dtos := make([]BookingDTO, len(bookings))
	for i := range bookings {
		dtos[i] = toBookingDTO(&bookings[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HandlePublic lists occupied slots without client details.
// GET /api/v1/bookings/public
func (h *BookingHandler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.ListOccupied(r.Context())
	if err != nil {
		writeServiceError(w, r, "list public bookings", err)
		return
	}
	dtos := make([]PublicBookingDTO, len(bookings))
	for i := range bookings {
		dtos[i] = toPublicBookingDTO(&bookings[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HandleUpdateStatus changes the status of a booking.
// PATCH /api/v1/bookings/{id}
// Request: {"status":"confirmed"}
func (h *BookingHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid booking ID.")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	booking, err := h.bookings.UpdateStatus(r.Context(), id, domain.BookingStatus(req.Status))
	if err != nil {
		writeServiceError(w, r, "update booking status", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

// HandleDelete deletes a booking.
// DELETE /api/v1/bookings/{id}
func (h *BookingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid booking ID.")
		return
	}
	if err := h.bookings.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, "delete booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
