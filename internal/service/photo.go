package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/msomdec/portfolio-api/internal/blob"
	"github.com/msomdec/portfolio-api/internal/domain"
	"github.com/msomdec/portfolio-api/internal/thumbnail"
)

// Ingestion states, used as the "state" attribute of pipeline log records.
const (
	stateOriginalStored     = "original_stored"
	stateRecordCreated      = "record_created"
	stateThumbnailQueued    = "thumbnail_queued"
	stateThumbnailStored    = "thumbnail_stored"
	stateThumbnailFailed    = "thumbnail_failed"
	stateThumbnailDiscarded = "thumbnail_discarded"
)

// ThumbnailState is the externally visible progress of a photo's thumbnail.
type ThumbnailState string

const (
	ThumbnailReady   ThumbnailState = "ready"
	ThumbnailPending ThumbnailState = "pending"
	ThumbnailFailed  ThumbnailState = "failed"
)

// Deriver produces a thumbnail file next to dstBase.
type Deriver interface {
	Derive(ctx context.Context, srcPath, dstBase string) (thumbnail.Result, error)
}

// PhotoUpload is the validated input of an upload request.
type PhotoUpload struct {
	Title       string
	Description *string
	AlbumID     int64
	Filename    string
	Body        io.Reader
}

// PhotoUpdate is a partial photo update. Nil fields are left as is.
type PhotoUpdate struct {
	Title       *string
	Description *string
	AlbumID     *int64
}

// PhotoService runs the photo ingestion pipeline: the original is stored and
// recorded synchronously, the thumbnail is derived by a background job.
type PhotoService struct {
	photos  domain.PhotoRepository
	albums  domain.AlbumRepository
	blobs   domain.BlobStore
	queue   domain.JobQueue
	deriver Deriver
	log     *slog.Logger
}

// NewPhotoService creates a new PhotoService.
func NewPhotoService(photos domain.PhotoRepository, albums domain.AlbumRepository, blobs domain.BlobStore, queue domain.JobQueue, deriver Deriver) *PhotoService {
	return &PhotoService{
		photos:  photos,
		albums:  albums,
		blobs:   blobs,
		queue:   queue,
		deriver: deriver,
		log:     slog.Default().With("component", "ingest"),
	}
}

// Upload stores the original, creates the photo record and queues the
// thumbnail job. It returns as soon as the record exists; the thumbnail URL
// of the returned photo is always nil. Nothing is left behind on failure.
func (s *PhotoService) Upload(ctx context.Context, in PhotoUpload) (*domain.Photo, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Filename) == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}
	if in.Body == nil {
		return nil, fmt.Errorf("%w: file is required", domain.ErrInvalidInput)
	}

	key, err := s.blobs.Put(ctx, in.Body, in.Filename)
	if err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}
	log := s.log.With("album_id", in.AlbumID, "key", key)
	log.Info("original stored", "state", stateOriginalStored)

	if _, err := s.albums.GetByID(ctx, in.AlbumID); err != nil {
		s.blobs.Remove(key)
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("upload rejected, album does not exist")
			return nil, fmt.Errorf("album %d: %w", in.AlbumID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get album: %w", err)
	}

	photo := &domain.Photo{
		Title:            title,
		Description:      trimOptional(in.Description),
		ImageURL:         s.blobs.URL(key),
		AlbumID:          in.AlbumID,
		OriginalFilename: blob.SanitizeName(in.Filename, time.Now()),
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		s.blobs.Remove(key)
		return nil, fmt.Errorf("create photo: %w", err)
	}
	log = log.With("photo_id", photo.ID)
	log.Info("photo record created", "state", stateRecordCreated)

	job := domain.IngestionJob{
		PhotoID:      photo.ID,
		SourceKey:    key,
		ThumbnailKey: s.blobs.ThumbnailKey(key),
	}
	if err := s.queue.Submit(job); err != nil {
		log.Warn("thumbnail job not queued, photo keeps no thumbnail", "state", stateThumbnailFailed, "error", err)
	} else {
		log.Info("thumbnail job queued", "state", stateThumbnailQueued)
	}

	return photo, nil
}

// ProcessThumbnail is the background job handler. It derives the thumbnail
// and records its URL only if the photo still exists without one; otherwise
// the freshly written file is removed.
func (s *PhotoService) ProcessThumbnail(ctx context.Context, job domain.IngestionJob) error {
	log := s.log.With("photo_id", job.PhotoID)

	src, err := s.blobs.Path(job.SourceKey)
	if err != nil {
		log.Error("thumbnail derivation failed", "state", stateThumbnailFailed, "error", err)
		return fmt.Errorf("resolve original: %w", err)
	}
	dstBase, err := s.blobs.Path(job.ThumbnailKey)
	if err != nil {
		log.Error("thumbnail derivation failed", "state", stateThumbnailFailed, "error", err)
		return fmt.Errorf("resolve thumbnail: %w", err)
	}

	res, err := s.deriver.Derive(ctx, src, dstBase)
	if err != nil {
		log.Error("thumbnail derivation failed", "state", stateThumbnailFailed, "error", err)
		return fmt.Errorf("derive thumbnail: %w", err)
	}

	thumbKey := job.ThumbnailKey + filepath.Ext(res.Path)
	applied, err := s.photos.SetThumbnail(ctx, job.PhotoID, s.blobs.URL(thumbKey))
	if err != nil {
		s.blobs.Remove(thumbKey)
		log.Error("thumbnail patch failed", "state", stateThumbnailFailed, "error", err)
		return fmt.Errorf("set thumbnail: %w", err)
	}
	if !applied {
		s.blobs.Remove(thumbKey)
		log.Info("photo deleted or already has a thumbnail, discarding", "state", stateThumbnailDiscarded)
		return nil
	}

	log.Info("thumbnail stored",
		"state", stateThumbnailStored,
		"format", res.Format,
		"width", res.Width,
		"height", res.Height,
	)
	return nil
}

// Get returns a photo. Photos in private albums are reported as not found
// unless includePrivate is set.
func (s *PhotoService) Get(ctx context.Context, id int64, includePrivate bool) (*domain.Photo, error) {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}
	if !includePrivate {
		if _, err := visibleAlbum(ctx, s.albums, photo.AlbumID, false); err != nil {
			return nil, err
		}
	}
	return photo, nil
}

// List returns a page of photos across all visible albums.
func (s *PhotoService) List(ctx context.Context, includePrivate bool, skip, limit int) ([]domain.Photo, error) {
	skip, limit = normalizePage(skip, limit)
	photos, err := s.photos.List(ctx, !includePrivate, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// ListByAlbum returns a page of photos of one album.
func (s *PhotoService) ListByAlbum(ctx context.Context, albumID int64, includePrivate bool, skip, limit int) ([]domain.Photo, error) {
	if _, err := visibleAlbum(ctx, s.albums, albumID, includePrivate); err != nil {
		return nil, err
	}
	skip, limit = normalizePage(skip, limit)
	photos, err := s.photos.ListByAlbum(ctx, albumID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list album photos: %w", err)
	}
	return photos, nil
}

// Update changes title, description or album of a photo.
func (s *PhotoService) Update(ctx context.Context, id int64, in PhotoUpdate) (*domain.Photo, error) {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get photo: %w", err)
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidInput)
		}
		photo.Title = title
	}
	if in.Description != nil {
		photo.Description = trimOptional(in.Description)
	}
	if in.AlbumID != nil && *in.AlbumID != photo.AlbumID {
		if _, err := s.albums.GetByID(ctx, *in.AlbumID); err != nil {
			return nil, fmt.Errorf("album %d: %w", *in.AlbumID, err)
		}
		photo.AlbumID = *in.AlbumID
	}

	if err := s.photos.Update(ctx, photo); err != nil {
		return nil, fmt.Errorf("update photo: %w", err)
	}
	return photo, nil
}

// Delete cancels any pending thumbnail job, removes both blobs best-effort
// and then deletes the record.
func (s *PhotoService) Delete(ctx context.Context, id int64) error {
	s.queue.Cancel(id)

	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get photo: %w", err)
	}
	s.removeBlobs(photo)

	if err := s.photos.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	s.log.Info("photo deleted", "photo_id", id)
	return nil
}

// ThumbnailStatus reports the thumbnail progress of a visible photo.
// The queue is consulted before the record: a job stores its thumbnail
// before it stops being pending, so a photo that was not pending and still
// has no thumbnail has failed.
func (s *PhotoService) ThumbnailStatus(ctx context.Context, id int64, includePrivate bool) (ThumbnailState, *domain.Photo, error) {
	pending := s.queue.Pending(id)
	photo, err := s.Get(ctx, id, includePrivate)
	if err != nil {
		return "", nil, err
	}
	switch {
	case photo.ThumbnailURL != nil:
		return ThumbnailReady, photo, nil
	case pending:
		return ThumbnailPending, photo, nil
	default:
		return ThumbnailFailed, photo, nil
	}
}

// discardAlbum cancels jobs and removes blobs of every photo in an album
// that is about to be deleted.
func (s *PhotoService) discardAlbum(ctx context.Context, albumID int64) error {
	photos, err := s.photos.ListAllByAlbum(ctx, albumID)
	if err != nil {
		return fmt.Errorf("list album photos: %w", err)
	}
	for i := range photos {
		s.queue.Cancel(photos[i].ID)
		s.removeBlobs(&photos[i])
	}
	return nil
}

func (s *PhotoService) removeBlobs(photo *domain.Photo) {
	urls := []string{photo.ImageURL}
	if photo.ThumbnailURL != nil {
		urls = append(urls, *photo.ThumbnailURL)
	}
	for _, u := range urls {
		key, ok := s.blobs.KeyFromURL(u)
		if !ok {
			s.log.Warn("photo references a blob outside the store", "photo_id", photo.ID, "url", u)
			continue
		}
		if !s.blobs.Remove(key) {
			s.log.Warn("blob left behind", "photo_id", photo.ID, "key", key)
		}
	}
}

func visibleAlbum(ctx context.Context, albums domain.AlbumRepository, id int64, includePrivate bool) (*domain.Album, error) {
	album, err := albums.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get album: %w", err)
	}
	if !includePrivate && !album.IsPublic {
		return nil, fmt.Errorf("album %d: %w", id, domain.ErrNotFound)
	}
	return album, nil
}

const (
	defaultPageSize = 100
	maxPageSize     = 100
)

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	return skip, min(limit, maxPageSize)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
