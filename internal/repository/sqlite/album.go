package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/portfolio-api/internal/domain"
)

// albumRepo implements domain.AlbumRepository using SQLite.
type albumRepo struct {
	db *sql.DB
}

const albumColumns = `id, title, description, is_public, sort_order, created_at`

func scanAlbum(row interface{ Scan(...any) error }) (domain.Album, error) {
	var a domain.Album
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.IsPublic, &a.SortOrder, &a.CreatedAt)
	return a, err
}

func (r *albumRepo) Create(ctx context.Context, album *domain.Album) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO albums (title, description, is_public, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		album.Title, album.Description, album.IsPublic, album.SortOrder, now,
	)
	if err != nil {
		return fmt.Errorf("insert album: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get album id: %w", err)
	}
	album.ID = id
	album.CreatedAt = now
	return nil
}

func (r *albumRepo) GetByID(ctx context.Context, id int64) (*domain.Album, error) {
	a, err := scanAlbum(r.db.QueryRowContext(ctx,
		`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query album: %w", err)
	}
	return &a, nil
}

func (r *albumRepo) List(ctx context.Context, publicOnly bool, offset, limit int) ([]domain.Album, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+albumColumns+` FROM albums
		 WHERE (? = 0 OR is_public = 1)
		 ORDER BY COALESCE(sort_order, id), id
		 LIMIT ? OFFSET ?`,
		publicOnly, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	defer rows.Close()

	var albums []domain.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func (r *albumRepo) Update(ctx context.Context, album *domain.Album) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE albums SET title = ?, description = ?, is_public = ? WHERE id = ?`,
		album.Title, album.Description, album.IsPublic, album.ID,
	)
	if err != nil {
		return fmt.Errorf("update album: %w", err)
	}
	return requireAffected(res, "update album")
}

// Delete removes the album; its photos go with it through ON DELETE CASCADE.
func (r *albumRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	return requireAffected(res, "delete album")
}

func (r *albumRepo) Reorder(ctx context.Context, ids []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE albums SET sort_order = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		res, err := stmt.ExecContext(ctx, i+1, id)
		if err != nil {
			return fmt.Errorf("set album %d rank: %w", id, err)
		}
		if err := requireAffected(res, "reorder album"); err != nil {
			return fmt.Errorf("album %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
