package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/msomdec/portfolio-api/internal/domain"
)

// AlbumService manages albums and their display order.
type AlbumService struct {
	albums domain.AlbumRepository
	photos *PhotoService
}

// NewAlbumService creates a new AlbumService. Deleting an album discards
// its photos' blobs through photos.
func NewAlbumService(albums domain.AlbumRepository, photos *PhotoService) *AlbumService {
	return &AlbumService{albums: albums, photos: photos}
}

// Create validates and stores a new album.
func (s *AlbumService) Create(ctx context.Context, title string, description *string, isPublic bool) (*domain.Album, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	album := &domain.Album{
		Title:       title,
		Description: trimOptional(description),
		IsPublic:    isPublic,
	}
	if err := s.albums.Create(ctx, album); err != nil {
		return nil, fmt.Errorf("create album: %w", err)
	}
	return album, nil
}

// Get returns an album. Private albums are not found unless includePrivate
// is set.
func (s *AlbumService) Get(ctx context.Context, id int64, includePrivate bool) (*domain.Album, error) {
	return visibleAlbum(ctx, s.albums, id, includePrivate)
}

// List returns albums in display order.
func (s *AlbumService) List(ctx context.Context, includePrivate bool, skip, limit int) ([]domain.Album, error) {
	skip, limit = normalizePage(skip, limit)
	albums, err := s.albums.List(ctx, !includePrivate, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	return albums, nil
}

// Update applies a partial update.
func (s *AlbumService) Update(ctx context.Context, id int64, in domain.AlbumUpdate) (*domain.Album, error) {
	album, err := s.albums.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidInput)
		}
		album.Title = title
	}
	if in.Description != nil {
		album.Description = trimOptional(in.Description)
	}
	if in.IsPublic != nil {
		album.IsPublic = *in.IsPublic
	}

	if err := s.albums.Update(ctx, album); err != nil {
		return nil, fmt.Errorf("update album: %w", err)
	}
	return album, nil
}

// Delete removes an album together with its photos. Photo blobs are
// removed best-effort before the records go.
func (s *AlbumService) Delete(ctx context.Context, id int64) error {
	if _, err := s.albums.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get album: %w", err)
	}
	if err := s.photos.discardAlbum(ctx, id); err != nil {
		return err
	}
	if err := s.albums.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	slog.Info("album deleted", "album_id", id)
	return nil
}

// Reorder ranks the given albums 1..n in order and returns the full,
// reordered list. Albums not named keep their current rank.
func (s *AlbumService) Reorder(ctx context.Context, ids []int64) ([]domain.Album, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: album_ids must not be empty", domain.ErrInvalidInput)
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("%w: album %d listed twice", domain.ErrInvalidInput, id)
		}
		seen[id] = true
	}

	if err := s.albums.Reorder(ctx, ids); err != nil {
		return nil, fmt.Errorf("reorder albums: %w", err)
	}
	return s.List(ctx, true, 0, maxPageSize)
}
