package domain

import (
	"context"
	"time"
)

// Album groups photos. SortOrder is nullable; a nil rank sorts as if it
// were equal to the album ID.
type Album struct {
	ID          int64
	Title       string
	Description *string
	IsPublic    bool
	SortOrder   *int
	CreatedAt   time.Time
}

// AlbumUpdate describes a partial album update. Nil fields are left as is.
type AlbumUpdate struct {
	Title       *string
	Description *string
	IsPublic    *bool
}

// AlbumRepository defines persistence operations for albums.
type AlbumRepository interface {
	Create(ctx context.Context, album *Album) error
	GetByID(ctx context.Context, id int64) (*Album, error)
	// List returns albums ordered by COALESCE(sort_order, id), id.
	// When publicOnly is set, private albums are filtered out.
	List(ctx context.Context, publicOnly bool, offset, limit int) ([]Album, error)
	Update(ctx context.Context, album *Album) error
	Delete(ctx context.Context, id int64) error
	// Reorder assigns sort ranks 1..n to the given IDs in a single
	// transaction. Unknown IDs abort the whole reorder with ErrNotFound.
	Reorder(ctx context.Context, ids []int64) error
}
