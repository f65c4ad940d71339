// Package thumbnail derives small, heavily compressed preview images from
// uploaded originals.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp" // decode WebP originals

	"github.com/msomdec/portfolio-api/internal/blob"
)

const (
	// DefaultMaxWidth is the width of the default bounding box.
	DefaultMaxWidth = 400
	// DefaultMaxHeight is the height of the default bounding box.
	DefaultMaxHeight = 400
	// DefaultQuality is the lossy quality used for WebP and JPEG output.
	DefaultQuality = 55

	// webpMethod is libwebp's slowest, smallest compression effort.
	webpMethod = 6
)

// Format names an output encoding.
type Format string

// Output formats a Deriver can produce.
const (
	FormatWebP Format = "webp" // lossy WebP
	FormatJPEG Format = "jpeg" // baseline JPEG for opaque images
	FormatPNG  Format = "png"  // paletted or plain PNG for images with alpha
)

func (f Format) ext() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	}
	return ".webp"
}

// Result describes a written thumbnail.
type Result struct {
	Path     string
	Format   Format
	Width    int
	Height   int
	HasAlpha bool
}

type encodeFunc func(w io.Writer, img image.Image) error

type candidate struct {
	format Format
	name   string
	encode encodeFunc
}

// Deriver produces thumbnails. The zero value is not usable; call New.
type Deriver struct {
	maxWidth      int
	maxHeight     int
	quality       int
	releaseMemory bool

	// Encoders are fields so tests can force the fallback chain.
	encodeWebP    encodeFunc
	encodePalette encodeFunc
	encodePNG     encodeFunc
	encodeJPEG    encodeFunc
}

// Option configures a Deriver.
type Option func(*Deriver)

// WithBox sets the bounding box thumbnails are fitted into.
func WithBox(width, height int) Option {
	return func(d *Deriver) {
		d.maxWidth, d.maxHeight = width, height
	}
}

// WithQuality sets the lossy encode quality (1-100).
func WithQuality(q int) Option {
	return func(d *Deriver) { d.quality = q }
}

// WithReleaseMemory makes the deriver return freed heap to the OS after
// every derivation. Meant for small deployments where concurrent image
// decoding dominates peak memory.
func WithReleaseMemory(release bool) Option {
	return func(d *Deriver) { d.releaseMemory = release }
}

// New creates a Deriver with a 400x400 box and quality 55 unless
// overridden.
func New(opts ...Option) *Deriver {
	d := &Deriver{
		maxWidth:  DefaultMaxWidth,
		maxHeight: DefaultMaxHeight,
		quality:   DefaultQuality,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.encodeWebP = d.webpLossy
	d.encodeJPEG = d.jpegBaseline
	d.encodePalette = pngPaletted
	d.encodePNG = pngPlain
	return d
}

// Derive decodes srcPath, fits it into the bounding box and writes exactly
// one file at dstBase plus the extension of the format that succeeded. On
// error no output file exists. Codec panics are recovered into errors.
func (d *Deriver) Derive(ctx context.Context, srcPath, dstBase string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("derive thumbnail: panic: %v", r)
			res = Result{}
		}
		if d.releaseMemory {
			debug.FreeOSMemory()
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	src, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("decode: %w", err)
	}

	alpha := hasAlpha(src)
	img := normalize(src, alpha)
	src = nil

	b := img.Bounds()
	if b.Dx() > d.maxWidth || b.Dy() > d.maxHeight {
		img = imaging.Fit(img, d.maxWidth, d.maxHeight, imaging.Lanczos)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var errs []error
	for _, c := range d.candidates(alpha) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		dst := dstBase + c.format.ext()
		err := blob.WriteFile(dst, func(w io.Writer) error { return c.encode(w, img) })
		if err == nil {
			b := img.Bounds()
			return Result{Path: dst, Format: c.format, Width: b.Dx(), Height: b.Dy(), HasAlpha: alpha}, nil
		}
		if errors.Is(err, os.ErrExist) {
			return Result{}, fmt.Errorf("write %s: %w", dst, err)
		}
		slog.Warn("thumbnail encode failed, falling back", "encoder", c.name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
	}
	return Result{}, fmt.Errorf("encode: %w", errors.Join(errs...))
}

func (d *Deriver) candidates(alpha bool) []candidate {
	if alpha {
		return []candidate{
			{FormatWebP, "webp", d.encodeWebP},
			{FormatPNG, "png-palette", d.encodePalette},
			{FormatPNG, "png", d.encodePNG},
		}
	}
	return []candidate{
		{FormatWebP, "webp", d.encodeWebP},
		{FormatJPEG, "jpeg", d.encodeJPEG},
	}
}

func (d *Deriver) webpLossy(w io.Writer, img image.Image) error {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(d.quality))
	if err != nil {
		return fmt.Errorf("webp options: %w", err)
	}
	opts.Method = webpMethod
	return webp.Encode(w, img, opts)
}

func (d *Deriver) jpegBaseline(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(d.quality))
}

// pngPaletted dithers the image onto a 256 colour palette with one fully
// transparent slot, keeping alpha thumbnails small.
func pngPaletted(w io.Writer, img image.Image) error {
	pal := make(color.Palette, len(palette.Plan9))
	copy(pal, palette.Plan9)
	pal[0] = color.Transparent

	b := img.Bounds()
	pm := image.NewPaletted(b, pal)
	draw.FloydSteinberg.Draw(pm, b, img, b.Min)

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, pm)
}

func pngPlain(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, img)
}

// hasAlpha reports whether any pixel of img is not fully opaque. Images
// that cannot say are treated as alpha-bearing.
func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// normalize converts img to 8-bit RGBA. Opaque images get their alpha
// pinned to 255; alpha-bearing images keep straight alpha.
func normalize(img image.Image, alpha bool) image.Image {
	if alpha {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
