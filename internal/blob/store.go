package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	originalsDir  = "originals"
	thumbnailsDir = "thumbnails"

	defaultExt = ".jpg"
)

// imageExts are the extensions a stored original may keep. Anything else
// is stored as defaultExt so the file server never labels a blob as a
// non-image type.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// ErrInvalidKey is returned for keys that are empty or would resolve
// outside of the store root.
var ErrInvalidKey = errors.New("invalid blob key")

// Store is a filesystem-backed blob store. Originals live under
// originals/ and derived thumbnails under thumbnails/, both named by a
// random UUID so that concurrent uploads never share a path.
type Store struct {
	root      string
	urlPrefix string
}

// NewStore creates the root directory if needed and returns a Store whose
// blobs are publicly addressed under urlPrefix (for example "/uploads").
func NewStore(root, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{
		root:      root,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}, nil
}

// Root returns the directory blobs are stored under.
func (s *Store) Root() string { return s.root }

// Put streams r into a new original blob and returns its key. The
// suggested name only contributes its extension; the rest of the key is a
// random identifier. Nothing is left on disk when Put fails.
func (s *Store) Put(ctx context.Context, r io.Reader, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := path.Join(originalsDir, uuid.NewString()+extension(suggestedName))
	dst, err := s.Path(key)
	if err != nil {
		return "", err
	}
	err = WriteFile(dst, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write blob %s: %w", key, err)
	}
	return key, nil
}

// ThumbnailKey maps an original key to its thumbnail key without an
// extension. The deriver appends the extension of the format it produced.
func (s *Store) ThumbnailKey(originalKey string) string {
	base := path.Base(originalKey)
	base = strings.TrimSuffix(base, path.Ext(base))
	return path.Join(thumbnailsDir, base)
}

// Path resolves a key to a filesystem path inside the store root.
func (s *Store) Path(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	local := filepath.FromSlash(key)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.root, local), nil
}

// URL returns the public URL a key is served under.
func (s *Store) URL(key string) string {
	return s.urlPrefix + "/" + key
}

// KeyFromURL is the inverse of URL.
func (s *Store) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Exists reports whether a blob is present for key.
func (s *Store) Exists(key string) bool {
	p, err := s.Path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Remove deletes the blob for key. A blob that is already gone counts as
// removed; any other failure is logged and reported as false.
func (s *Store) Remove(key string) bool {
	p, err := s.Path(key)
	if err != nil {
		slog.Warn("remove blob", "key", key, "error", err)
		return false
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("remove blob", "key", key, "error", err)
		return false
	}
	return true
}

// WriteFile writes a file through a temporary sibling and links it into
// place, so readers never observe partial content and an existing file is
// never overwritten (os.ErrExist is returned instead). Parent directories
// are created as needed.
func WriteFile(dst string, write func(w io.Writer) error) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if _, err := os.Lstat(dst); err == nil {
		return os.ErrExist
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// On success the content survives under dst through the hard link.
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Link(tmpName, dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return os.ErrExist
		}
		return fmt.Errorf("link into place: %w", err)
	}
	return nil
}

// SanitizeName reduces an uploaded filename to a display-safe form: the
// extension is dropped, only letters, digits, spaces, hyphens and
// underscores are kept, trailing spaces are trimmed and remaining spaces
// become underscores. An empty result falls back to the unix timestamp.
func SanitizeName(name string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var b strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.ReplaceAll(strings.TrimRight(b.String(), " "), " ", "_")
	if safe == "" {
		return strconv.FormatInt(now.Unix(), 10)
	}
	return safe
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if !imageExts[ext] {
		return defaultExt
	}
	return ext
}
