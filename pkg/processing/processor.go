package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/types"
)

// maxSourceBytes caps downloads and file reads for a single image.
var maxSourceBytes int64 = 64 << 20

// Processor is the codec adapter: it turns bytes into pixel buffers and back.
type Processor struct {
	registry *Registry
}

// NewProcessor creates a processor backed by the default encoder registry
func NewProcessor() *Processor {
	return &Processor{registry: NewRegistry()}
}

// NewProcessorWithRegistry creates a processor with a custom encoder registry
func NewProcessorWithRegistry(r *Registry) *Processor {
	return &Processor{registry: r}
}

// Registry exposes the encoder registry
func (p *Processor) Registry() *Registry {
	return p.registry
}

// Decode decodes raw bytes into a pixel buffer, applying EXIF orientation.
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("decode", "empty image data", nil)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode for variants x/image does not handle
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, nil
	}

	return nil, apperrors.InvalidInput("decode", "unknown or unsupported image format", err)
}

// Info reads dimensions and pixel layout from the image header without
// decoding pixels. Dimensions are as stored, before EXIF orientation.
func (p *Processor) Info(data []byte) (*types.ImageInfo, error) {
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("info", "empty image data", nil)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.InvalidInput("info", "unknown or unsupported image format", err)
	}
	layout, channels := pixelLayout(cfg.ColorModel)
	return &types.ImageInfo{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   DetectType(data),
		MimeType: DetectMIME(data),
		Layout:   layout,
		Channels: channels,
		Size:     len(data),
	}, nil
}

func pixelLayout(m color.Model) (string, int) {
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return "RGBA8", 4
	case color.RGBA64Model, color.NRGBA64Model:
		return "RGBA16", 4
	case color.GrayModel:
		return "Luma8", 1
	case color.Gray16Model:
		return "Luma16", 1
	case color.YCbCrModel:
		return "YCbCr", 3
	case color.NYCbCrAModel:
		return "YCbCrA", 4
	case color.CMYKModel:
		return "CMYK", 4
	}
	if pal, ok := m.(color.Palette); ok {
		for _, c := range pal {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return "Paletted", 4
			}
		}
		return "Paletted", 3
	}
	return "Unknown", 0
}

// DetectType sniffs the container format of raw bytes, e.g. "PNG".
func DetectType(data []byte) string {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "unknown"
	}
	ext := strings.ToUpper(strings.TrimPrefix(mt.Extension(), "."))
	if ext == "JPG" {
		return "JPEG"
	}
	return ext
}

// DetectMIME returns the sniffed MIME type of raw bytes.
func DetectMIME(data []byte) string {
	return mimetype.Detect(data).String()
}

// Encode encodes a pixel buffer into the requested format.
// The boolean result reports whether a substitute codec produced the bytes.
func (p *Processor) Encode(img image.Image, format types.Format, opts EncodeOptions) ([]byte, bool, error) {
	enc, substituted, err := p.registry.Resolve(format)
	if err != nil {
		return nil, false, err
	}

	if !opts.PreserveAlpha || !enc.SupportsAlpha() {
		img = FlattenAlpha(img, color.White)
	}

	data, err := enc.Encode(img, opts)
	if err != nil {
		return nil, false, apperrors.EncodingFailure("encode", fmt.Sprintf("failed to encode %s", format), err)
	}
	return data, substituted, nil
}

// FlattenAlpha composites img onto an opaque background.
// Images without transparent pixels are returned unchanged.
func FlattenAlpha(img image.Image, bg color.Color) image.Image {
	if !HasAlpha(img) {
		return img
	}
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), bg)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// HasAlpha reports whether any pixel of img is not fully opaque.
func HasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// ReadSource reads image bytes from a file path or an http(s) URL
func (p *Processor) ReadSource(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.fetchURL(source)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()
	return readLimited(f)
}

// readLimited reads r fully and rejects sources over maxSourceBytes
// instead of truncating them.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > maxSourceBytes {
		return nil, apperrors.InvalidInput("read", fmt.Sprintf("image exceeds %d MiB", maxSourceBytes>>20), nil)
	}
	return data, nil
}

func (p *Processor) fetchURL(imageURL string) ([]byte, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Pixuli/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	return readLimited(resp.Body)
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, FlattenAlpha(img, color.White), &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
