package domain

import (
	"context"
	"time"
)

// Photo is an image stored in the blob store and attached to an album.
// ThumbnailURL stays nil until the background derivation succeeds, and
// forever if it fails.
type Photo struct {
	ID               int64
	Title            string
	Description      *string
	ImageURL         string
	ThumbnailURL     *string
	AlbumID          int64
	OriginalFilename string
	CreatedAt        time.Time
}

// PhotoRepository defines persistence operations for photos.
type PhotoRepository interface {
	Create(ctx context.Context, photo *Photo) error
	GetByID(ctx context.Context, id int64) (*Photo, error)
	List(ctx context.Context, publicOnly bool, offset, limit int) ([]Photo, error)
	ListByAlbum(ctx context.Context, albumID int64, offset, limit int) ([]Photo, error)
	// ListAllByAlbum returns every photo of an album without pagination.
	ListAllByAlbum(ctx context.Context, albumID int64) ([]Photo, error)
	// Update writes title, description and album. It never touches
	// thumbnail_url, which belongs to the background job.
	Update(ctx context.Context, photo *Photo) error
	// SetThumbnail records the thumbnail URL only while the row exists and
	// has no thumbnail yet. It returns false when nothing was updated.
	SetThumbnail(ctx context.Context, id int64, url string) (bool, error)
	Delete(ctx context.Context, id int64) error
}
