package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"strings"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/types"
)

// EncodeOptions controls a single encode call.
type EncodeOptions struct {
	Quality       int
	Lossless      bool
	PreserveAlpha bool
}

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the format the encoder actually produces.
	Format() types.Format

	// MIME returns the content type of the encoded bytes.
	MIME() string

	// SupportsAlpha reports whether the format can carry transparency.
	SupportsAlpha() bool

	// Encode converts the image to bytes.
	Encode(img image.Image, opts EncodeOptions) ([]byte, error)
}

// JPEGEncoder encodes images to JPEG. Lossless requests use quality 100.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() types.Format { return types.FormatJPEG }
func (e *JPEGEncoder) MIME() string         { return "image/jpeg" }
func (e *JPEGEncoder) SupportsAlpha() bool  { return false }

func (e *JPEGEncoder) Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	quality := opts.Quality
	if opts.Lossless {
		quality = 100
	}
	var buf bytes.Buffer
	buf.Grow(256 * 1024)
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PNGEncoder encodes images to PNG. Quality is ignored.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() types.Format { return types.FormatPNG }
func (e *PNGEncoder) MIME() string         { return "image/png" }
func (e *PNGEncoder) SupportsAlpha() bool  { return true }

func (e *PNGEncoder) Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	level := png.DefaultCompression
	if opts.Lossless {
		level = png.BestCompression
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WebPEncoder encodes images to WebP through libwebp.
type WebPEncoder struct{}

func (e *WebPEncoder) Format() types.Format { return types.FormatWebP }
func (e *WebPEncoder) MIME() string         { return "image/webp" }
func (e *WebPEncoder) SupportsAlpha() bool  { return true }

func (e *WebPEncoder) Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(opts.Quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GIFEncoder encodes a single-frame, palette-quantized GIF. Images with
// transparent pixels get a transparent palette entry; GIF has no partial
// alpha, so pixels below half opacity become fully transparent.
type GIFEncoder struct{}

func (e *GIFEncoder) Format() types.Format { return types.FormatGIF }
func (e *GIFEncoder) MIME() string         { return "image/gif" }
func (e *GIFEncoder) SupportsAlpha() bool  { return true }

func (e *GIFEncoder) Encode(img image.Image, _ EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if !HasAlpha(img) {
		if err := imaging.Encode(&buf, img, imaging.GIF, imaging.GIFNumColors(256)); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if err := gif.Encode(&buf, palettedWithTransparency(img), &gif.Options{NumColors: 256}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// palettedWithTransparency maps img onto Plan9 with the last entry
// reserved for transparent pixels.
func palettedWithTransparency(img image.Image) *image.Paletted {
	opaque := color.Palette(palette.Plan9[:255])
	pal := make(color.Palette, 0, 256)
	pal = append(pal, opaque...)
	pal = append(pal, color.RGBA{})
	transparent := uint8(len(pal) - 1)

	b := img.Bounds()
	pm := image.NewPaletted(b, pal)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A < 0x80 {
				pm.SetColorIndex(x, y, transparent)
				continue
			}
			c.A = 0xff
			pm.SetColorIndex(x, y, uint8(opaque.Index(c)))
		}
	}
	return pm
}

// BMPEncoder encodes uncompressed BMP.
type BMPEncoder struct{}

func (e *BMPEncoder) Format() types.Format { return types.FormatBMP }
func (e *BMPEncoder) MIME() string         { return "image/bmp" }
func (e *BMPEncoder) SupportsAlpha() bool  { return false }

func (e *BMPEncoder) Encode(img image.Image, _ EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TIFFEncoder encodes deflate-compressed TIFF.
type TIFFEncoder struct{}

func (e *TIFFEncoder) Format() types.Format { return types.FormatTIFF }
func (e *TIFFEncoder) MIME() string         { return "image/tiff" }
func (e *TIFFEncoder) SupportsAlpha() bool  { return true }

func (e *TIFFEncoder) Encode(img image.Image, _ EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Registry maps target formats to encoders.
type Registry struct {
	mu       sync.RWMutex
	encoders map[types.Format]Encoder
}

// NewRegistry creates a registry with a native encoder for every supported format.
func NewRegistry() *Registry {
	r := &Registry{encoders: make(map[types.Format]Encoder)}
	for _, enc := range []Encoder{
		&JPEGEncoder{},
		&PNGEncoder{},
		&WebPEncoder{},
		&GIFEncoder{},
		&BMPEncoder{},
		&TIFFEncoder{},
	} {
		r.encoders[enc.Format()] = enc
	}
	return r
}

// Register routes format to enc. When enc produces a different format the
// route is a substitution and is reported as such by Resolve.
func (r *Registry) Register(format types.Format, enc Encoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[format] = enc
}

// Supports reports whether a route exists for format.
func (r *Registry) Supports(format types.Format) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.encoders[format]
	return ok
}

// Resolve returns the encoder for format and whether it is a substitute.
func (r *Registry) Resolve(format types.Format) (Encoder, bool, error) {
	r.mu.RLock()
	enc, ok := r.encoders[format]
	r.mu.RUnlock()
	if !ok {
		return nil, false, apperrors.InvalidInput("encode", fmt.Sprintf("unsupported target format %q", format), nil)
	}
	return enc, enc.Format() != format, nil
}

// Available returns all routable formats in display order.
func (r *Registry) Available() []types.Format {
	var result []types.Format
	for _, f := range types.AllFormats() {
		if r.Supports(f) {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	names := make([]string, len(avail))
	for i, f := range avail {
		names[i] = string(f)
	}
	return fmt.Sprintf("encoders: %s", strings.Join(names, ", "))
}
