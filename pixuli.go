// Package pixuli analyzes and converts raster images.
//
// Analysis is heuristic: images are classified from their dimensions and a
// grid-sampled color histogram, and placeholder objects are derived from the
// same signals. A model backend can be configured to add real inference on
// top of that. Conversion re-encodes images between JPEG, PNG, WebP, GIF, BMP
// and TIFF with optional aspect-aware resizing.
//
// Basic usage:
//
//	p, err := pixuli.New(pixuli.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	data, _ := os.ReadFile("photo.jpg")
//	result, err := p.Analyze(context.Background(), data)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.SceneType, result.Tags)
//
//	webp, err := p.Convert(data, types.ConversionRequest{
//		TargetFormat: types.FormatWebP,
//		Quality:      80,
//		Resize:       types.NewResize(1200, 0, true),
//	})
//
// The package consists of these components:
//
//  1. Processing (pkg/processing): decoding, encoder registry, alpha handling
//  2. Vision (pkg/vision): grid color sampling and color naming
//  3. Classifier (pkg/classifier): aspect, resolution and color passes
//  4. Detection (pkg/detection): placeholder objects and the vision model subject prompt
//  5. Backend (pkg/backend): optional model strategies
//  6. Analyzer and Convert (pkg/analyzer, pkg/convert): the orchestrators
package pixuli

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/menta2k/pixuli/internal/utils"
	"github.com/menta2k/pixuli/pkg/analyzer"
	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/backend"
	"github.com/menta2k/pixuli/pkg/convert"
	"github.com/menta2k/pixuli/pkg/processing"
	"github.com/menta2k/pixuli/pkg/types"
)

// Version of the pixuli library
const Version = "1.0.0"

// Config configures a Pixuli instance
type Config struct {
	Analysis analyzer.Options
	Backend  backend.Config
}

// DefaultConfig returns heuristic-only analysis with every stage enabled
func DefaultConfig() Config {
	return Config{
		Analysis: analyzer.DefaultOptions(),
		Backend:  backend.DefaultConfig(),
	}
}

// Pixuli provides a high-level interface for image analysis and conversion
type Pixuli struct {
	proc      *processing.Processor
	analyzer  *analyzer.Analyzer
	converter *convert.Converter
	backend   backend.Backend
}

// New creates a Pixuli instance. Backend options (runtime, vision client,
// logger) are passed through to backend.New.
func New(cfg Config, opts ...backend.Option) (*Pixuli, error) {
	b, err := backend.New(cfg.Backend, opts...)
	if err != nil {
		return nil, err
	}

	proc := processing.NewProcessor()
	return &Pixuli{
		proc:      proc,
		analyzer:  analyzer.New(analyzer.WithOptions(cfg.Analysis), analyzer.WithBackend(b)),
		converter: convert.New(convert.WithProcessor(proc)),
		backend:   b,
	}, nil
}

// Decode decodes raw bytes into an image
func (p *Pixuli) Decode(data []byte) (image.Image, error) {
	return p.proc.Decode(data)
}

// Encode encodes img to format. Quality applies to lossy formats.
func (p *Pixuli) Encode(img image.Image, format types.Format, quality int, lossless, preserveAlpha bool) ([]byte, error) {
	data, _, err := p.proc.Encode(img, format, processing.EncodeOptions{
		Quality:       quality,
		Lossless:      lossless,
		PreserveAlpha: preserveAlpha,
	})
	return data, err
}

// Info reads dimensions and pixel layout without decoding pixels
func (p *Pixuli) Info(data []byte) (*types.ImageInfo, error) {
	return p.proc.Info(data)
}

// Describe asks the configured generative backend for a free-form
// description of the image. It is the quickest way to confirm a vision
// model can see images; other backends return an InvalidInput error.
func (p *Pixuli) Describe(ctx context.Context, data []byte) (string, error) {
	d, ok := p.backend.(backend.Describer)
	if !ok {
		return "", apperrors.InvalidInput("describe", fmt.Sprintf("backend %q cannot describe images", p.ModelUsed()), nil)
	}
	img, err := p.proc.Decode(data)
	if err != nil {
		return "", err
	}
	return d.Describe(ctx, img)
}

// ReadSource reads image bytes from a file path or an http(s) URL
func (p *Pixuli) ReadSource(source string) ([]byte, error) {
	return p.proc.ReadSource(source)
}

// Analyze analyzes one encoded image
func (p *Pixuli) Analyze(ctx context.Context, data []byte) (*types.AnalysisResult, error) {
	return p.analyzer.Analyze(ctx, data)
}

// BatchAnalyze analyzes every input, reporting failures inline
func (p *Pixuli) BatchAnalyze(ctx context.Context, inputs [][]byte) []types.AnalysisResult {
	return p.analyzer.BatchAnalyze(ctx, inputs)
}

// Convert converts one encoded image
func (p *Pixuli) Convert(data []byte, req types.ConversionRequest) (*types.ConversionResult, error) {
	return p.converter.Convert(data, req)
}

// BatchConvert converts every input; the first failure aborts the batch
func (p *Pixuli) BatchConvert(inputs [][]byte, req types.ConversionRequest) ([]*types.ConversionResult, error) {
	return p.converter.BatchConvert(inputs, req)
}

// ModelUsed names the configured backend
func (p *Pixuli) ModelUsed() string {
	return p.analyzer.ModelLabel()
}

// Close releases backend resources such as inference sessions
func (p *Pixuli) Close() error {
	if c, ok := p.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CheckModelAvailable reports whether a model file exists at path. The
// file content is not validated.
func CheckModelAvailable(path string) bool {
	return utils.FileExists(path)
}

// SupportedFormats lists the target formats accepted by Convert
func SupportedFormats() []types.Format {
	return types.AllFormats()
}

// ModelInfo describes a well-known model and the backend that runs it
type ModelInfo struct {
	Name    string       `json:"name"`
	Backend backend.Kind `json:"backend"`
	Task    string       `json:"task"`
}

// SupportedModels lists the models the backends are designed for
func SupportedModels() []ModelInfo {
	return []ModelInfo{
		{Name: "mobilenet-v2", Backend: backend.KindTensorFlowLite, Task: "classification"},
		{Name: "efficientnet-b0", Backend: backend.KindTensorFlow, Task: "classification"},
		{Name: "resnet-50", Backend: backend.KindTensorFlow, Task: "classification"},
		{Name: "coco-ssd", Backend: backend.KindTensorFlow, Task: "detection"},
		{Name: "yolo-onnx", Backend: backend.KindONNX, Task: "detection"},
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
