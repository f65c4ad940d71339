package service_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/portfolio-api/internal/blob"
	"github.com/msomdec/portfolio-api/internal/domain"
	"github.com/msomdec/portfolio-api/internal/repository/sqlite"
	"github.com/msomdec/portfolio-api/internal/service"
	"github.com/msomdec/portfolio-api/internal/thumbnail"
	"github.com/msomdec/portfolio-api/internal/worker"
)

type photoFixture struct {
	db     *sqlite.DB
	store  *blob.Store
	pool   *worker.Pool
	photos *service.PhotoService
	albums *service.AlbumService
}

// newPhotoFixture wires the ingestion pipeline against a temp database and
// upload directory. The pool is only started when start is set, so tests
// can hold jobs in the queue.
func newPhotoFixture(t *testing.T, start bool, queueDepth int) *photoFixture {
	t.Helper()
	db := newTestDB(t)
	store, err := blob.NewStore(filepath.Join(t.TempDir(), "uploads"), "/uploads")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	var photos *service.PhotoService
	pool := worker.New(func(ctx context.Context, job domain.IngestionJob) error {
		return photos.ProcessThumbnail(ctx, job)
	}, worker.Options{Workers: 1, QueueDepth: queueDepth, JobTimeout: 30 * time.Second})
	photos = service.NewPhotoService(db.Photos(), db.Albums(), store, pool, thumbnail.New())

	if start {
		pool.Start()
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	return &photoFixture{
		db:     db,
		store:  store,
		pool:   pool,
		photos: photos,
		albums: service.NewAlbumService(db.Albums(), photos),
	}
}

func (f *photoFixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := f.pool.Shutdown(ctx); err != nil {
		t.Fatalf("drain pool: %v", err)
	}
}

func (f *photoFixture) album(t *testing.T, public bool) *domain.Album {
	t.Helper()
	a, err := f.albums.Create(context.Background(), "Album", nil, public)
	if err != nil {
		t.Fatalf("create album: %v", err)
	}
	return a
}

func (f *photoFixture) upload(t *testing.T, albumID int64, body []byte) *domain.Photo {
	t.Helper()
	p, err := f.photos.Upload(context.Background(), service.PhotoUpload{
		Title:    "Sunset",
		AlbumID:  albumID,
		Filename: "sunset.png",
		Body:     bytes.NewReader(body),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return p
}

func (f *photoFixture) files(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.store.Root(), dir))
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	var n int
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".tmp-") {
			n++
		}
	}
	return n
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestPhotoService_Upload_ThumbnailArrivesInBackground(t *testing.T) {
	f := newPhotoFixture(t, false, 8)
	ctx := context.Background()
	album := f.album(t, true)

	photo := f.upload(t, album.ID, pngBytes(t, 800, 600))
	if photo.ThumbnailURL != nil {
		t.Fatal("expected thumbnail to be null right after upload")
	}
	key, ok := f.store.KeyFromURL(photo.ImageURL)
	if !ok || !f.store.Exists(key) {
		t.Fatalf("expected original blob behind %q", photo.ImageURL)
	}
	if photo.OriginalFilename != "sunset" {
		t.Fatalf("expected sanitized filename, got %q", photo.OriginalFilename)
	}

	state, _, err := f.photos.ThumbnailStatus(ctx, photo.ID, false)
	if err != nil || state != service.ThumbnailPending {
		t.Fatalf("expected pending status, got %q err=%v", state, err)
	}

	f.pool.Start()
	f.drain(t)

	got, err := f.photos.Get(ctx, photo.ID, false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ThumbnailURL == nil {
		t.Fatal("expected thumbnail after the job ran")
	}
	thumbKey, ok := f.store.KeyFromURL(*got.ThumbnailURL)
	if !ok || !f.store.Exists(thumbKey) {
		t.Fatalf("thumbnail URL %q does not resolve to a blob", *got.ThumbnailURL)
	}

	p, _ := f.store.Path(thumbKey)
	fh, err := os.Open(p)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	defer fh.Close()
	cfg, _, err := image.DecodeConfig(fh)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if cfg.Width != 400 || cfg.Height != 300 {
		t.Fatalf("expected 400x300 thumbnail, got %dx%d", cfg.Width, cfg.Height)
	}

	state, _, _ = f.photos.ThumbnailStatus(ctx, photo.ID, false)
	if state != service.ThumbnailReady {
		t.Fatalf("expected ready status, got %q", state)
	}
}

func TestPhotoService_Upload_UnknownAlbumLeavesNoBlob(t *testing.T) {
	f := newPhotoFixture(t, true, 8)

	_, err := f.photos.Upload(context.Background(), service.PhotoUpload{
		Title:    "Orphan",
		AlbumID:  404,
		Filename: "orphan.jpg",
		Body:     bytes.NewReader(pngBytes(t, 10, 10)),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := f.files(t, "originals"); n != 0 {
		t.Fatalf("expected no original left behind, found %d", n)
	}
}

func TestPhotoService_Upload_InvalidInput(t *testing.T) {
	f := newPhotoFixture(t, true, 8)
	album := f.album(t, true)

	tests := []struct {
		name string
		in   service.PhotoUpload
	}{
		{"missing title", service.PhotoUpload{Title: "  ", AlbumID: album.ID, Filename: "a.jpg", Body: strings.NewReader("x")}},
		{"missing filename", service.PhotoUpload{Title: "t", AlbumID: album.ID, Filename: "", Body: strings.NewReader("x")}},
		{"missing body", service.PhotoUpload{Title: "t", AlbumID: album.ID, Filename: "a.jpg"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.photos.Upload(context.Background(), tc.in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
	if n := f.files(t, "originals"); n != 0 {
		t.Fatalf("expected no blobs for rejected uploads, found %d", n)
	}
}

func TestPhotoService_Upload_CorruptImageKeepsNullThumbnail(t *testing.T) {
	f := newPhotoFixture(t, true, 8)
	ctx := context.Background()
	album := f.album(t, true)

	photo := f.upload(t, album.ID, []byte("this is not an image"))
	f.drain(t)

	got, err := f.photos.Get(ctx, photo.ID, true)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ThumbnailURL != nil {
		t.Fatalf("expected null thumbnail for corrupt image, got %q", *got.ThumbnailURL)
	}
	if n := f.files(t, "thumbnails"); n != 0 {
		t.Fatalf("expected no thumbnail file, found %d", n)
	}
	state, _, _ := f.photos.ThumbnailStatus(ctx, photo.ID, true)
	if state != service.ThumbnailFailed {
		t.Fatalf("expected failed status, got %q", state)
	}
}

func TestPhotoService_Upload_QueueFullStillSucceeds(t *testing.T) {
	f := newPhotoFixture(t, false, 1)
	ctx := context.Background()
	album := f.album(t, true)

	first := f.upload(t, album.ID, pngBytes(t, 20, 20))
	second := f.upload(t, album.ID, pngBytes(t, 20, 20))

	if got, err := f.photos.Get(ctx, second.ID, true); err != nil || got.ID != second.ID {
		t.Fatalf("expected second upload to be recorded, got %v err=%v", got, err)
	}
	if s, _, _ := f.photos.ThumbnailStatus(ctx, first.ID, true); s != service.ThumbnailPending {
		t.Fatalf("expected first job pending, got %q", s)
	}
	if s, _, _ := f.photos.ThumbnailStatus(ctx, second.ID, true); s != service.ThumbnailFailed {
		t.Fatalf("expected dropped job to report failed, got %q", s)
	}
}

func TestPhotoService_Delete(t *testing.T) {
	f := newPhotoFixture(t, true, 8)
	ctx := context.Background()
	album := f.album(t, true)

	photo := f.upload(t, album.ID, pngBytes(t, 500, 500))
	f.drain(t)

	if err := f.photos.Delete(ctx, photo.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n := f.files(t, "originals") + f.files(t, "thumbnails"); n != 0 {
		t.Fatalf("expected both blobs removed, %d left", n)
	}
	if err := f.photos.Delete(ctx, photo.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPhotoService_DeleteCancelsQueuedJob(t *testing.T) {
	f := newPhotoFixture(t, false, 8)
	ctx := context.Background()
	album := f.album(t, true)

	photo := f.upload(t, album.ID, pngBytes(t, 500, 500))
	if err := f.photos.Delete(ctx, photo.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	f.pool.Start()
	f.drain(t)

	if n := f.files(t, "thumbnails"); n != 0 {
		t.Fatalf("expected cancelled job to write nothing, found %d thumbnails", n)
	}
}

func TestPhotoService_ProcessThumbnail_DiscardsWhenPhotoGone(t *testing.T) {
	f := newPhotoFixture(t, false, 8)
	ctx := context.Background()
	album := f.album(t, true)

	photo := f.upload(t, album.ID, pngBytes(t, 100, 100))
	key, _ := f.store.KeyFromURL(photo.ImageURL)

	// Remove the record behind the pipeline's back; the job must not
	// resurrect it or leave a dangling thumbnail.
	if err := f.db.Photos().Delete(ctx, photo.ID); err != nil {
		t.Fatalf("delete record: %v", err)
	}

	job := domain.IngestionJob{PhotoID: photo.ID, SourceKey: key, ThumbnailKey: f.store.ThumbnailKey(key)}
	if err := f.photos.ProcessThumbnail(ctx, job); err != nil {
		t.Fatalf("ProcessThumbnail: %v", err)
	}
	if n := f.files(t, "thumbnails"); n != 0 {
		t.Fatalf("expected discarded thumbnail to be removed, found %d", n)
	}
}

func TestPhotoService_PrivateAlbumHidden(t *testing.T) {
	f := newPhotoFixture(t, true, 8)
	ctx := context.Background()
	private := f.album(t, false)

	photo := f.upload(t, private.ID, pngBytes(t, 10, 10))

	if _, err := f.photos.Get(ctx, photo.ID, false); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for anonymous reader, got %v", err)
	}
	if _, err := f.photos.Get(ctx, photo.ID, true); err != nil {
		t.Fatalf("admin Get: %v", err)
	}
	if _, err := f.photos.ListByAlbum(ctx, private.ID, false, 0, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound listing private album, got %v", err)
	}
	list, err := f.photos.List(ctx, false, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no public photos, got %d", len(list))
	}
}

func TestPhotoService_Update(t *testing.T) {
	f := newPhotoFixture(t, true, 8)
	ctx := context.Background()
	from := f.album(t, true)
	to := f.album(t, true)

	photo := f.upload(t, from.ID, pngBytes(t, 10, 10))

	title := "Renamed"
	desc := "  golden hour  "
	updated, err := f.photos.Update(ctx, photo.ID, service.PhotoUpdate{Title: &title, Description: &desc, AlbumID: &to.ID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Renamed" || updated.AlbumID != to.ID || *updated.Description != "golden hour" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	missing := int64(999)
	if _, err := f.photos.Update(ctx, photo.ID, service.PhotoUpdate{AlbumID: &missing}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound moving to unknown album, got %v", err)
	}
	empty := " "
	if _, err := f.photos.Update(ctx, photo.ID, service.PhotoUpdate{Title: &empty}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty title, got %v", err)
	}
	if _, err := f.photos.Update(ctx, 12345, service.PhotoUpdate{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown photo, got %v", err)
	}
}

// stubQueue is a JobQueue whose pending set is driven by the test.
type stubQueue struct {
	mu      sync.Mutex
	pending map[int64]bool
}

func (q *stubQueue) Submit(job domain.IngestionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending[job.PhotoID] = true
	return nil
}

func (q *stubQueue) Cancel(photoID int64) {}

func (q *stubQueue) Pending(photoID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[photoID]
}

func (q *stubQueue) done(photoID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, photoID)
}

// racingPhotos runs afterGet once, right after the first GetByID returns.
type racingPhotos struct {
	domain.PhotoRepository
	once     sync.Once
	afterGet func()
}

func (r *racingPhotos) GetByID(ctx context.Context, id int64) (*domain.Photo, error) {
	p, err := r.PhotoRepository.GetByID(ctx, id)
	r.once.Do(r.afterGet)
	return p, err
}

func TestPhotoService_ThumbnailStatus_JobFinishesDuringRead(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	store, err := blob.NewStore(filepath.Join(t.TempDir(), "uploads"), "/uploads")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	album := &domain.Album{Title: "Album", IsPublic: true}
	if err := db.Albums().Create(ctx, album); err != nil {
		t.Fatalf("create album: %v", err)
	}
	photo := &domain.Photo{Title: "Sunset", ImageURL: "/uploads/x.png", AlbumID: album.ID, OriginalFilename: "x.png"}
	if err := db.Photos().Create(ctx, photo); err != nil {
		t.Fatalf("create photo: %v", err)
	}

	queue := &stubQueue{pending: map[int64]bool{photo.ID: true}}
	repo := &racingPhotos{PhotoRepository: db.Photos()}
	repo.afterGet = func() {
		// The job stores its thumbnail, then leaves the pending set.
		if _, err := db.Photos().SetThumbnail(ctx, photo.ID, "/uploads/thumbnails/x.webp"); err != nil {
			t.Errorf("SetThumbnail: %v", err)
		}
		queue.done(photo.ID)
	}
	photos := service.NewPhotoService(repo, db.Albums(), store, queue, thumbnail.New())

	state, _, err := photos.ThumbnailStatus(ctx, photo.ID, false)
	if err != nil {
		t.Fatalf("ThumbnailStatus: %v", err)
	}
	if state == service.ThumbnailFailed {
		t.Fatal("a thumbnail stored while its record was read must not be reported as failed")
	}

	state, got, err := photos.ThumbnailStatus(ctx, photo.ID, false)
	if err != nil {
		t.Fatalf("ThumbnailStatus: %v", err)
	}
	if state != service.ThumbnailReady || got.ThumbnailURL == nil {
		t.Fatalf("expected ready with a thumbnail URL, got state=%s photo=%+v", state, got)
	}
}
