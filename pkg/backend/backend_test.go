package backend

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/types"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yolo.onnx")
	if err := os.WriteFile(path, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		if got, ok := ParseKind(string(k)); !ok || got != k {
			t.Errorf("ParseKind(%s) = %s, %v", k, got, ok)
		}
	}
	if k, ok := ParseKind(""); !ok || k != KindHeuristic {
		t.Error("empty kind should mean heuristic")
	}
	if _, ok := ParseKind("pytorch"); ok {
		t.Error("unknown kinds must be rejected")
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	b, err := New(Config{Kind: KindHeuristic})
	if err != nil || b != nil {
		t.Errorf("heuristic should have no backend, got %v, %v", b, err)
	}

	for _, k := range []Kind{KindTensorFlow, KindTensorFlowLite, KindONNX} {
		if _, err := New(Config{Kind: k}); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("%s without model path should be invalid input, got %v", k, err)
		}
	}

	if _, err := New(Config{Kind: "pytorch"}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("unknown kind should be invalid input, got %v", err)
	}
}

func TestStubBackendsReportUnimplemented(t *testing.T) {
	cfgs := []Config{
		{Kind: KindTensorFlow, ModelPath: "model.pb"},
		{Kind: KindTensorFlowLite, ModelPath: "model.tflite"},
		{Kind: KindLocalLLM},
		{Kind: KindRemoteAPI},
	}
	for _, cfg := range cfgs {
		b, err := New(cfg, WithLogger(quietLog()))
		if err != nil {
			t.Fatalf("%s: %v", cfg.Kind, err)
		}
		out, err := b.Analyze(context.Background(), solid(4, 4, color.White))
		if err != nil {
			t.Fatalf("%s: %v", cfg.Kind, err)
		}
		if out.Status != StatusUnimplemented || out.Reason == "" {
			t.Errorf("%s: expected unimplemented with a reason, got %+v", cfg.Kind, out)
		}
		if b.Label() == "" {
			t.Errorf("%s: empty label", cfg.Kind)
		}
	}
}

func TestSessionMissingModel(t *testing.T) {
	b, err := New(Config{Kind: KindONNX, ModelPath: filepath.Join(t.TempDir(), "missing.onnx")}, WithLogger(quietLog()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Analyze(context.Background(), solid(4, 4, color.White))
	if !errors.Is(err, apperrors.ErrModelUnavailable) {
		t.Errorf("expected model unavailable, got %v", err)
	}
}

func TestSessionWithoutRuntime(t *testing.T) {
	b := NewSessionBackend(Config{ModelPath: writeModel(t), InputSize: 8}, nil, quietLog())
	out, err := b.Analyze(context.Background(), solid(4, 4, color.White))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusUnimplemented {
		t.Errorf("expected unimplemented, got %s", out.Status)
	}
	if len(b.Labels()) != len(COCOLabels) {
		t.Errorf("expected COCO fallback labels, got %d", len(b.Labels()))
	}
}

func TestLabels(t *testing.T) {
	model := writeModel(t)
	if got := LabelsPathFor(model); filepath.Base(got) != "yolo_labels.txt" {
		t.Errorf("LabelsPathFor = %s", got)
	}

	labels, err := LoadLabels(LabelsPathFor(model), []string{"a", "b"})
	if err != nil || len(labels) != 2 {
		t.Errorf("injected defaults should be used, got %v %v", labels, err)
	}

	if err := os.WriteFile(LabelsPathFor(model), []byte("cat\n\n dog \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	labels, err = LoadLabels(LabelsPathFor(model), nil)
	if err != nil || len(labels) != 2 || labels[1] != "dog" {
		t.Errorf("unexpected labels %v %v", labels, err)
	}
}

type fakeSession struct {
	data  []float32
	shape []int64
}

func (f *fakeSession) Run(input []float32, shape [4]int64) ([]float32, []int64, error) {
	if int64(len(input)) != shape[1]*shape[2]*shape[3] {
		return nil, nil, errors.New("bad input length")
	}
	return f.data, f.shape, nil
}

func (f *fakeSession) Close() error { return nil }

type fakeRuntime struct {
	calls   atomic.Int32
	fail    map[Provider]bool
	session Session
}

func (f *fakeRuntime) NewSession(modelPath string, p Provider) (Session, error) {
	f.calls.Add(1)
	if f.fail[p] {
		return nil, errors.New("provider not installed")
	}
	return f.session, nil
}

func TestProviderNegotiation(t *testing.T) {
	rt := &fakeRuntime{
		fail:    map[Provider]bool{ProviderCUDA: true, ProviderDirectML: true},
		session: &fakeSession{shape: []int64{1, 0, 7}},
	}
	b := NewSessionBackend(Config{ModelPath: writeModel(t), UseGPU: true, InputSize: 8, ConfidenceThreshold: 0.5}, rt, quietLog())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Init(); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if b.Provider() != ProviderCPU {
		t.Errorf("expected CPU fallback, got %s", b.Provider())
	}
	if rt.calls.Load() != 3 {
		t.Errorf("negotiation should run once over 3 providers, got %d calls", rt.calls.Load())
	}
}

func TestProviderNegotiationAllFail(t *testing.T) {
	rt := &fakeRuntime{fail: map[Provider]bool{ProviderCPU: true}}
	b := NewSessionBackend(Config{ModelPath: writeModel(t)}, rt, quietLog())
	if err := b.Init(); !errors.Is(err, apperrors.ErrBackendFailure) {
		t.Errorf("expected backend failure, got %v", err)
	}
}

func TestSessionInference(t *testing.T) {
	// two rows, stride 7 (4 box + conf + 2 classes)
	data := []float32{
		0.5, 0.5, 0.5, 0.5, 0.9, 0.1, 0.8, // class 1: 0.72
		0.2, 0.2, 0.1, 0.1, 0.6, 0.7, 0.2, // class 0: 0.42, dropped
	}
	rt := &fakeRuntime{session: &fakeSession{data: data, shape: []int64{1, 2, 7}}}
	cfg := Config{ModelPath: writeModel(t), InputSize: 8, ConfidenceThreshold: 0.5, DefaultLabels: []string{"cat", "dog"}}
	b := NewSessionBackend(cfg, rt, quietLog())

	out, err := b.Analyze(context.Background(), solid(200, 100, color.White))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusInference || out.SceneType != "object_detection" {
		t.Errorf("unexpected outcome %+v", out)
	}
	if len(out.Objects) != 1 || out.Objects[0].Name != "dog" {
		t.Fatalf("expected one dog, got %+v", out.Objects)
	}
	if len(out.Tags) != 1 || out.Tags[0] != "dog" {
		t.Errorf("tags = %v", out.Tags)
	}
}

func TestPostprocess(t *testing.T) {
	data := []float32{0.5, 0.5, 0.5, 0.25, 1.0, 0.0, 0.9}
	objs := Postprocess(data, []int64{1, 1, 7}, []string{"cat", "dog"}, 400, 200, 0.5)
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
	want := types.BoundingBox{X: 100, Y: 75, Width: 200, Height: 50, Pixels: true}
	if objs[0].BBox != want {
		t.Errorf("bbox = %+v, want %+v", objs[0].BBox, want)
	}
	if objs[0].Synthetic {
		t.Error("model detections are not synthetic")
	}

	// class index beyond the vocabulary is dropped
	if got := Postprocess(data, []int64{1, 1, 7}, []string{"cat"}, 400, 200, 0.5); len(got) != 0 {
		t.Errorf("expected no objects, got %+v", got)
	}
	if got := Postprocess(data, []int64{7}, nil, 1, 1, 0.5); len(got) != 0 {
		t.Error("malformed shapes yield nothing")
	}
}

func TestPreprocess(t *testing.T) {
	out := Preprocess(solid(30, 10, color.RGBA{255, 0, 51, 255}), 4)
	if len(out) != 3*16 {
		t.Fatalf("expected 48 values, got %d", len(out))
	}
	for i := 0; i < 16; i++ {
		if out[i] != 1 || out[16+i] != 0 || out[32+i] != 0.2 {
			t.Fatalf("pixel %d: got r=%v g=%v b=%v", i, out[i], out[16+i], out[32+i])
		}
	}
}

type fakeVision struct{ answer string }

func (f fakeVision) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return f.answer, nil
}

func (fakeVision) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.VisionReply, error) {
	return &types.VisionReply{
		Primary:     types.Primary{Label: "tree", Confidence: 0.8, Box: types.Box{X: 0.1, Y: 0.1, W: 0.5, H: 0.8}},
		Description: "a tree in a field",
		Tags:        []string{"tree", "field"},
		Scene:       "outdoor",
	}, nil
}

func TestGenerativeBackend(t *testing.T) {
	b, err := New(Config{Kind: KindLocalLLM, ModelName: "llava"}, WithVisionClient(fakeVision{}), WithLogger(quietLog()))
	if err != nil {
		t.Fatal(err)
	}
	if b.Label() != "Local LLM (llava)" {
		t.Errorf("label = %s", b.Label())
	}
	out, err := b.Analyze(context.Background(), solid(32, 32, color.RGBA{0, 128, 0, 255}))
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != StatusInference || out.SceneType != "outdoor" || out.Confidence != 0.8 {
		t.Errorf("unexpected outcome %+v", out)
	}
	if len(out.Objects) != 1 || out.Objects[0].Name != "tree" || out.Objects[0].Source != string(KindLocalLLM) {
		t.Errorf("unexpected objects %+v", out.Objects)
	}
}

func TestGenerativeDescribe(t *testing.T) {
	b, err := New(Config{Kind: KindLocalLLM, ModelName: "llava"}, WithVisionClient(fakeVision{answer: "a green square"}), WithLogger(quietLog()))
	if err != nil {
		t.Fatal(err)
	}
	d, ok := b.(Describer)
	if !ok {
		t.Fatal("generative backend should describe images")
	}
	text, err := d.Describe(context.Background(), solid(32, 32, color.RGBA{0, 128, 0, 255}))
	if err != nil {
		t.Fatal(err)
	}
	if text != "a green square" {
		t.Errorf("text = %q", text)
	}

	b, err = New(Config{Kind: KindLocalLLM, ModelName: "llava"}, WithVisionClient(fakeVision{}), WithLogger(quietLog()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.(Describer).Describe(context.Background(), solid(8, 8, color.RGBA{0, 0, 0, 255}))
	if !errors.Is(err, apperrors.ErrBackendFailure) {
		t.Errorf("empty answer should be a backend failure, got %v", err)
	}
}

func TestStubsDoNotDescribe(t *testing.T) {
	b, err := New(Config{Kind: KindTensorFlowLite, ModelPath: "m.tflite"}, WithLogger(quietLog()))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(Describer); ok {
		t.Error("stub backends should not describe images")
	}
}
