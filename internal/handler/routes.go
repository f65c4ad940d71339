package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/portfolio-api/internal/service"
)

const apiPrefix = "/api/v1"

// Deps carries everything the routes need.
type Deps struct {
	Auth     *service.AuthService
	Albums   *service.AlbumService
	Photos   *service.PhotoService
	Bookings *service.BookingService
	DB       Pinger

	// LoginLimiter and BookingLimiter guard the anonymous write endpoints.
	// Nil disables limiting.
	LoginLimiter   *service.TokenBucket
	BookingLimiter *service.TokenBucket

	UploadDir      string
	UploadPrefix   string
	MaxUploadBytes int64

	// StatusPollInterval overrides how often the thumbnail event stream
	// re-checks a pending photo.
	StatusPollInterval time.Duration
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	authH := NewAuthHandler(d.Auth)
	albumH := NewAlbumHandler(d.Albums)
	photoH := NewPhotoHandler(d.Photos, d.MaxUploadBytes).WithPollInterval(d.StatusPollInterval)
	bookingH := NewBookingHandler(d.Bookings)

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(d.Auth, h)
	}
	optionalAuth := func(h http.HandlerFunc) http.Handler {
		return OptionalAuth(d.Auth, h)
	}
	limited := func(tb *service.TokenBucket, h http.HandlerFunc) http.Handler {
		if tb == nil {
			return h
		}
		return RateLimit(tb, h)
	}

	mux.Handle("GET /healthz", HandleHealthz(d.DB))

	mux.Handle("POST "+apiPrefix+"/login/token", limited(d.LoginLimiter, authH.HandleLogin))
	mux.Handle("GET "+apiPrefix+"/users/me", requireAuth(authH.HandleMe))

	mux.Handle("POST "+apiPrefix+"/albums/{$}", requireAuth(albumH.HandleCreate))
	mux.Handle("GET "+apiPrefix+"/albums/{$}", optionalAuth(albumH.HandleList))
	mux.Handle("POST "+apiPrefix+"/albums/reorder", requireAuth(albumH.HandleReorder))
	mux.Handle("GET "+apiPrefix+"/albums/{id}", optionalAuth(albumH.HandleGet))
	mux.Handle("PATCH "+apiPrefix+"/albums/{id}", requireAuth(albumH.HandleUpdate))
	mux.Handle("DELETE "+apiPrefix+"/albums/{id}", requireAuth(albumH.HandleDelete))

	mux.Handle("POST "+apiPrefix+"/photos/{$}", requireAuth(photoH.HandleUpload))
	mux.Handle("GET "+apiPrefix+"/photos/{$}", optionalAuth(photoH.HandleList))
	mux.Handle("GET "+apiPrefix+"/photos/album/{albumID}", optionalAuth(photoH.HandleListByAlbum))
	mux.Handle("GET "+apiPrefix+"/photos/{id}", optionalAuth(photoH.HandleGet))
	mux.Handle("GET "+apiPrefix+"/photos/{id}/thumbnail/events", optionalAuth(photoH.HandleThumbnailEvents))
	mux.Handle("PATCH "+apiPrefix+"/photos/{id}", requireAuth(photoH.HandleUpdate))
	mux.Handle("DELETE "+apiPrefix+"/photos/{id}", requireAuth(photoH.HandleDelete))

	mux.Handle("POST "+apiPrefix+"/bookings/{$}", limited(d.BookingLimiter, bookingH.HandleCreate))
	mux.Handle("GET "+apiPrefix+"/bookings/{$}", requireAuth(bookingH.HandleList))
	mux.Handle("GET "+apiPrefix+"/bookings/public", http.HandlerFunc(bookingH.HandlePublic))
	mux.Handle("PATCH "+apiPrefix+"/bookings/{id}", requireAuth(bookingH.HandleUpdateStatus))
	mux.Handle("DELETE "+apiPrefix+"/bookings/{id}", requireAuth(bookingH.HandleDelete))

	if d.UploadDir != "" && d.UploadPrefix != "" {
		mux.Handle("GET "+d.UploadPrefix+"/", UploadsHandler(d.UploadPrefix, d.UploadDir))
	}
}
