package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
)

// photoRepo implements domain.PhotoRepository using SQLite.
type photoRepo struct {
	db *sql.DB
}

const photoColumns = `p.id, p.title, p.description, p.image_url, p.thumbnail_url, p.album_id, p.original_filename, p.created_at`

func scanPhoto(row interface{ Scan(...any) error }) (domain.Photo, error) {
	var p domain.Photo
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.ImageURL, &p.ThumbnailURL,
		&p.AlbumID, &p.OriginalFilename, &p.CreatedAt)
	return p, err
}

func (r *photoRepo) Create(ctx context.Context, photo *domain.Photo) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO photos (title, description, image_url, thumbnail_url, album_id, original_filename, created_at)
		 VALUES (?, ?, ?, NULL, ?, ?, ?)`,
		photo.Title, photo.Description, photo.ImageURL, photo.AlbumID, photo.OriginalFilename, now,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("album %d: %w", photo.AlbumID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert photo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get photo id: %w", err)
	}
	photo.ID = id
	photo.ThumbnailURL = nil
	photo.CreatedAt = now
	return nil
}

func (r *photoRepo) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	p, err := scanPhoto(r.db.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos p WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query photo: %w", err)
	}
	return &p, nil
}

func (r *photoRepo) List(ctx context.Context, publicOnly bool, offset, limit int) ([]domain.Photo, error) {
	return r.query(ctx,
		`SELECT `+photoColumns+` FROM photos p
		 JOIN albums a ON a.id = p.album_id
		 WHERE (? = 0 OR a.is_public = 1)
		 ORDER BY p.id
		 LIMIT ? OFFSET ?`,
		publicOnly, limit, offset,
	)
}

func (r *photoRepo) ListByAlbum(ctx context.Context, albumID int64, offset, limit int) ([]domain.Photo, error) {
	return r.query(ctx,
		`SELECT `+photoColumns+` FROM photos p
		 WHERE p.album_id = ?
		 ORDER BY p.id
		 LIMIT ? OFFSET ?`,
		albumID, limit, offset,
	)
}

func (r *photoRepo) ListAllByAlbum(ctx context.Context, albumID int64) ([]domain.Photo, error) {
	return r.query(ctx,
		`SELECT `+photoColumns+` FROM photos p WHERE p.album_id = ? ORDER BY p.id`, albumID)
}

func (r *photoRepo) Update(ctx context.Context, photo *domain.Photo) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE photos SET title = ?, description = ?, album_id = ? WHERE id = ?`,
		photo.Title, photo.Description, photo.AlbumID, photo.ID,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return fmt.Errorf("album %d: %w", photo.AlbumID, domain.ErrNotFound)
		}
		return fmt.Errorf("update photo: %w", err)
	}
	return requireAffected(res, "update photo")
}

func (r *photoRepo) SetThumbnail(ctx context.Context, id int64, url string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE photos SET thumbnail_url = ? WHERE id = ? AND thumbnail_url IS NULL`, url, id)
	if err != nil {
		return false, fmt.Errorf("set thumbnail: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set thumbnail rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *photoRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	return requireAffected(res, "delete photo")
}

func (r *photoRepo) query(ctx context.Context, query string, args ...any) ([]domain.Photo, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
