package handler

import (
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
)

// UserDTO is the JSON representation of an admin user.
type UserDTO struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:       u.ID,
		Email:    u.Email,
		IsActive: u.IsActive,
	}
}

// AlbumDTO is the JSON representation of an album.
type AlbumDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsPublic    bool    `json:"is_public"`
	SortOrder   *int    `json:"sort_order"`
}

func toAlbumDTO(a *domain.Album) AlbumDTO {
	return AlbumDTO{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		IsPublic:    a.IsPublic,
		SortOrder:   a.SortOrder,
	}
}

func toAlbumDTOs(albums []domain.Album) []AlbumDTO {
	dtos := make([]AlbumDTO, len(albums))
	for i := range albums {
		dtos[i] = toAlbumDTO(&albums[i])
	}
	return dtos
}

// PhotoDTO is the JSON representation of a photo. ThumbnailURL stays null
// until the background job has stored a thumbnail.
type PhotoDTO struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	ImageURL     string  `json:"image_url"`
	ThumbnailURL *string `json:"thumbnail_url"`
	AlbumID      int64   `json:"album_id"`
}

func toPhotoDTO(p *domain.Photo) PhotoDTO {
	return PhotoDTO{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		ImageURL:     p.ImageURL,
		ThumbnailURL: p.ThumbnailURL,
		AlbumID:      p.AlbumID,
	}
}

func toPhotoDTOs(photos []domain.Photo) []PhotoDTO {
	dtos := make([]PhotoDTO, len(photos))
	for i := range photos {
		dtos[i] = toPhotoDTO(&photos[i])
	}
	return dtos
}

// BookingDTO is the admin view of a booking.
type BookingDTO struct {
	ID          int64   `json:"id"`
	ClientName  string  `json:"client_name"`
	ClientEmail string  `json:"client_email"`
	ClientPhone *string `json:"client_phone"`
	ServiceName string  `json:"service_name"`
	BookingDate string  `json:"booking_date"`
	Status      string  `json:"status"`
	Notes       *string `json:"notes"`
	CreatedAt   string  `json:"created_at"`
}

func toBookingDTO(b *domain.Booking) BookingDTO {
	return BookingDTO{
		ID:          b.ID,
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		ClientPhone: b.ClientPhone,
		ServiceName: b.ServiceName,
		BookingDate: b.BookingDate.UTC().Format(time.RFC3339),
		Status:      string(b.Status),
		Notes:       b.Notes,
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// PublicBookingDTO exposes only what the public calendar needs.
type PublicBookingDTO struct {
	ID          int64  `json:"id"`
	ServiceName string `json:"service_name"`
	BookingDate string `json:"booking_date"`
	Status      string `json:"status"`
}

func toPublicBookingDTO(b *domain.Booking) PublicBookingDTO {
	return PublicBookingDTO{
		ID:          b.ID,
		ServiceName: b.ServiceName,
		BookingDate: b.BookingDate.UTC().Format(time.RFC3339),
		Status:      string(b.Status),
	}
}
