package processing

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/types"
)

func createTestImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 96, 255})
		}
	}
	return img
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := NewProcessor()
	src := createTestImage(64, 48)

	for _, f := range types.AllFormats() {
		t.Run(string(f), func(t *testing.T) {
			data, substituted, err := p.Encode(src, f, EncodeOptions{Quality: 85})
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if substituted {
				t.Errorf("native encoder for %s reported substitution", f)
			}
			img, err := p.Decode(data)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
				t.Errorf("expected 64x48, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	p := NewProcessor()

	for _, data := range [][]byte{nil, []byte("definitely not an image")} {
		_, err := p.Decode(data)
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("expected invalid input for %q, got %v", data, err)
		}
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	p := NewProcessor()
	_, _, err := p.Encode(createTestImage(4, 4), types.Format("heic"), EncodeOptions{Quality: 80})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestSubstitutedEncoder(t *testing.T) {
	r := NewRegistry()
	r.Register(types.FormatGIF, &PNGEncoder{})
	p := NewProcessorWithRegistry(r)

	data, substituted, err := p.Encode(createTestImage(8, 8), types.FormatGIF, EncodeOptions{Quality: 80})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !substituted {
		t.Error("expected substitution flag for GIF routed to PNG")
	}
	if got := DetectType(data); got != "PNG" {
		t.Errorf("expected PNG bytes, got %s", got)
	}
}

func TestDetectType(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(8, 8)

	cases := map[types.Format]string{
		types.FormatJPEG: "JPEG",
		types.FormatPNG:  "PNG",
		types.FormatGIF:  "GIF",
		types.FormatBMP:  "BMP",
		types.FormatWebP: "WEBP",
	}
	for f, want := range cases {
		data, _, err := p.Encode(img, f, EncodeOptions{Quality: 80})
		if err != nil {
			t.Fatalf("encode %s: %v", f, err)
		}
		if got := DetectType(data); got != want {
			t.Errorf("DetectType(%s) = %s, want %s", f, got, want)
		}
	}

	if got := DetectType([]byte("plain text")); got != "unknown" {
		t.Errorf("expected unknown for text, got %s", got)
	}
}

func TestFlattenAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{255, 0, 0, 255})

	if !HasAlpha(img) {
		t.Fatal("expected transparent pixels")
	}

	flat := FlattenAlpha(img, color.White)
	if HasAlpha(flat) {
		t.Error("flattened image still has transparency")
	}
	r, g, b, _ := flat.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("transparent pixel should become white, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = flat.At(1, 1).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("opaque pixel should keep its color, got %d,%d,%d", r>>8, g>>8, b>>8)
	}

	opaque := createTestImage(4, 4)
	if FlattenAlpha(opaque, color.White) != image.Image(opaque) {
		t.Error("opaque images should be returned unchanged")
	}
}

func TestPreserveTransparency(t *testing.T) {
	p := NewProcessor()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	data, _, err := p.Encode(img, types.FormatPNG, EncodeOptions{PreserveAlpha: true})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if !HasAlpha(decoded) {
		t.Error("PNG with PreserveAlpha should keep transparency")
	}

	data, _, err = p.Encode(img, types.FormatPNG, EncodeOptions{PreserveAlpha: false})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err = p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if HasAlpha(decoded) {
		t.Error("PNG without PreserveAlpha should be flattened")
	}
}

func TestPreserveTransparencyGIF(t *testing.T) {
	p := NewProcessor()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	data, _, err := p.Encode(img, types.FormatGIF, EncodeOptions{PreserveAlpha: true})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, a := decoded.At(4, 6).RGBA(); a != 0 {
		t.Errorf("transparent pixel should stay transparent, alpha=%d", a)
	}
	if r, _, _, a := decoded.At(4, 1).RGBA(); a != 0xffff || r < 0xf000 {
		t.Errorf("opaque red pixel changed: r=%d a=%d", r, a)
	}

	data, _, err = p.Encode(img, types.FormatGIF, EncodeOptions{PreserveAlpha: false})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err = p.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if HasAlpha(decoded) {
		t.Error("GIF without PreserveAlpha should be flattened")
	}
	if r, g, b, _ := decoded.At(4, 6).RGBA(); r < 0xf000 || g < 0xf000 || b < 0xf000 {
		t.Errorf("flattened pixel should be white, got %d,%d,%d", r, g, b)
	}
}

func TestReadSourceRejectsOversized(t *testing.T) {
	old := maxSourceBytes
	maxSourceBytes = 1 << 20
	defer func() { maxSourceBytes = old }()

	path := filepath.Join(t.TempDir(), "big.png")
	if err := os.WriteFile(path, make([]byte, (1<<20)+1), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewProcessor().ReadSource(path)
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	exact := filepath.Join(t.TempDir(), "exact.png")
	if err := os.WriteFile(exact, make([]byte, 1<<20), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := NewProcessor().ReadSource(exact)
	if err != nil || len(data) != 1<<20 {
		t.Errorf("source at the limit should be read whole: len=%d err=%v", len(data), err)
	}
}

func TestInfo(t *testing.T) {
	p := NewProcessor()
	rgba := createTestImage(40, 30)

	tests := []struct {
		format   types.Format
		wantType string
		channels int
	}{
		{types.FormatPNG, "PNG", 4},
		{types.FormatJPEG, "JPEG", 3},
		{types.FormatGIF, "GIF", 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			data, _, err := p.Encode(rgba, tt.format, EncodeOptions{Quality: 90})
			if err != nil {
				t.Fatal(err)
			}
			info, err := p.Info(data)
			if err != nil {
				t.Fatal(err)
			}
			if info.Width != 40 || info.Height != 30 {
				t.Errorf("dims = %dx%d", info.Width, info.Height)
			}
			if info.Format != tt.wantType || info.Channels != tt.channels || info.Size != len(data) {
				t.Errorf("unexpected info %+v", info)
			}
		})
	}

	gray := image.NewGray(image.Rect(0, 0, 5, 7))
	data, _, err := p.Encode(gray, types.FormatPNG, EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	info, err := p.Info(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.Layout != "Luma8" || info.Channels != 1 {
		t.Errorf("gray PNG reported as %s/%d", info.Layout, info.Channels)
	}

	if _, err := p.Info([]byte("not an image")); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestRegistryAvailable(t *testing.T) {
	r := NewRegistry()
	if got := len(r.Available()); got != len(types.AllFormats()) {
		t.Errorf("expected %d encoders, got %d", len(types.AllFormats()), got)
	}
	if r.String() == "no encoders available" {
		t.Error("default registry should list encoders")
	}
}

func BenchmarkEncodeJPEG(b *testing.B) {
	p := NewProcessor()
	img := createTestImage(640, 480)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = p.Encode(img, types.FormatJPEG, EncodeOptions{Quality: 85})
	}
}
