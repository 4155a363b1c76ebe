package pixuli

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/backend"
	"github.com/menta2k/pixuli/pkg/types"
)

// createTestImage creates a frame with a bright subject in the center
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}
	return img
}

func newTestPixuli(t *testing.T) *Pixuli {
	t.Helper()
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func encode(t *testing.T, p *Pixuli, img image.Image, f types.Format) []byte {
	t.Helper()
	data, err := p.Encode(img, f, 90, false, false)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	p := newTestPixuli(t)
	src := createTestImage(120, 80)

	for _, f := range SupportedFormats() {
		img, err := p.Decode(encode(t, p, src, f))
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if img.Bounds().Dx() != 120 || img.Bounds().Dy() != 80 {
			t.Errorf("%s: got %dx%d", f, img.Bounds().Dx(), img.Bounds().Dy())
		}
	}
}

func TestAnalyze(t *testing.T) {
	p := newTestPixuli(t)
	data := encode(t, p, createTestImage(300, 300), types.FormatJPEG)

	res, err := p.Analyze(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.ImageType != "JPEG" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.ModelUsed != "Basic Analysis" || p.ModelUsed() != "Basic Analysis" {
		t.Errorf("model used = %s", res.ModelUsed)
	}
	if len(res.Colors) == 0 {
		t.Error("expected sampled colors")
	}
}

func TestBatchAnalyzeLengthPreserving(t *testing.T) {
	p := newTestPixuli(t)
	good := encode(t, p, createTestImage(50, 50), types.FormatPNG)

	results := p.BatchAnalyze(context.Background(), [][]byte{good, {0x00, 0x01}, good, good})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			if r.Error == "" {
				t.Error("failed entry needs an error message")
			}
		}
	}
	if failed != 1 || results[1].Success {
		t.Errorf("expected only item 1 to fail, %d failed", failed)
	}
}

func TestConvertPlannedDimensions(t *testing.T) {
	p := newTestPixuli(t)
	data := encode(t, p, createTestImage(400, 300), types.FormatPNG)

	for _, f := range SupportedFormats() {
		res, err := p.Convert(data, types.ConversionRequest{
			TargetFormat: f,
			Quality:      75,
			Resize:       types.NewResize(0, 150, true),
		})
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		img, err := p.Decode(res.Data)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 150 {
			t.Errorf("%s: got %dx%d, want 200x150", f, img.Bounds().Dx(), img.Bounds().Dy())
		}
	}
}

func TestBatchConvertAllOrNothing(t *testing.T) {
	p := newTestPixuli(t)
	good := encode(t, p, createTestImage(20, 20), types.FormatPNG)

	results, err := p.BatchConvert([][]byte{good, []byte("bad"), good}, types.ConversionRequest{TargetFormat: types.FormatJPEG, Quality: 80})
	if err == nil || results != nil {
		t.Errorf("expected error and no results, got %d results, %v", len(results), err)
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestNewRejectsBadBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Kind = backend.KindONNX
	if _, err := New(cfg); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("onnx without model path should fail, got %v", err)
	}
}

func TestStubBackendLabel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Kind = backend.KindTensorFlowLite
	cfg.Backend.ModelPath = "mobilenet.tflite"
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	res, err := p.Analyze(context.Background(), encode(t, p, createTestImage(40, 40), types.FormatPNG))
	if err != nil {
		t.Fatal(err)
	}
	if res.ModelUsed != "TensorFlow Lite" || res.BackendStatus != "unimplemented" {
		t.Errorf("model %q status %q", res.ModelUsed, res.BackendStatus)
	}
}

type cannedVision struct{}

func (cannedVision) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a grey frame with a white square", nil
}

func (cannedVision) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.VisionReply, error) {
	return &types.VisionReply{}, nil
}

func TestDescribe(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.Kind = backend.KindLocalLLM
	cfg.Backend.ModelName = "llava"
	p, err := New(cfg, backend.WithVisionClient(cannedVision{}))
	if err != nil {
		t.Fatal(err)
	}
	data := encode(t, p, createTestImage(60, 40), types.FormatPNG)

	text, err := p.Describe(context.Background(), data)
	if err != nil {
		t.Fatal(err)
	}
	if text != "a grey frame with a white square" {
		t.Errorf("text = %q", text)
	}

	heuristic := newTestPixuli(t)
	if _, err := heuristic.Describe(context.Background(), data); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("heuristic backend cannot describe, got %v", err)
	}
}

func TestInfo(t *testing.T) {
	p := newTestPixuli(t)
	data := encode(t, p, createTestImage(120, 80), types.FormatJPEG)
	info, err := p.Info(data)
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 120 || info.Height != 80 || info.Format != "JPEG" || info.MimeType != "image/jpeg" || info.Size != len(data) {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestCheckModelAvailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yolo.onnx")
	if CheckModelAvailable(path) {
		t.Error("missing model reported available")
	}
	if err := os.WriteFile(path, []byte("anything"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !CheckModelAvailable(path) {
		t.Error("content must not be validated")
	}
}

func TestSupportedLists(t *testing.T) {
	if len(SupportedFormats()) != 6 {
		t.Errorf("expected 6 formats, got %v", SupportedFormats())
	}
	models := SupportedModels()
	if len(models) != 5 || models[4].Name != "yolo-onnx" || models[4].Backend != backend.KindONNX {
		t.Errorf("unexpected models %+v", models)
	}
	if GetVersion() != Version {
		t.Error("version mismatch")
	}
}
