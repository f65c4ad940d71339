package migrations_test

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/msomdec/portfolio-api/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	return db
}

func TestRunMigrations(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first migration run: %v", err)
	}

	for _, table := range []string{"users", "albums", "photos", "bookings"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("expected table %s to exist: %v", table, err)
		}
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("second run (idempotent): %v", err)
	}

	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != len(files) {
		t.Fatalf("expected %d migration records, got %d", len(files), count)
	}
}

func TestPhotosCascadeWithAlbum(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	if err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("run: %v", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT INTO albums (id, title) VALUES (1, 'a')"); err != nil {
		t.Fatalf("insert album: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO photos (title, image_url, album_id) VALUES ('p', '/uploads/originals/x.jpg', 1)"); err != nil {
		t.Fatalf("insert photo: %v", err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO photos (title, image_url, album_id) VALUES ('p', '/uploads/originals/y.jpg', 99)"); err == nil {
		t.Fatal("expected foreign key violation for unknown album")
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM albums WHERE id = 1"); err != nil {
		t.Fatalf("delete album: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count); err != nil {
		t.Fatalf("count photos: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected photos to cascade, %d left", count)
	}
}
