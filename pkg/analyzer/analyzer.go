// Package analyzer runs the analysis pipeline: decode, heuristic
// classification, color sampling, placeholder detection and an optional
// model backend.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/pixuli/internal/logger"
	"github.com/menta2k/pixuli/pkg/backend"
	"github.com/menta2k/pixuli/pkg/classifier"
	"github.com/menta2k/pixuli/pkg/detection"
	"github.com/menta2k/pixuli/pkg/processing"
	"github.com/menta2k/pixuli/pkg/types"
	"github.com/menta2k/pixuli/pkg/vision"
)

// BasicModelLabel is reported as ModelUsed when no backend is configured.
const BasicModelLabel = "Basic Analysis"

// BackendStatusNone marks results produced without a backend.
const BackendStatusNone = "none"

// Options toggles parts of the pipeline.
type Options struct {
	AnalyzeColors bool
	DetectObjects bool
	Sample        vision.SampleOptions
}

// DefaultOptions enables every stage with default sampling.
func DefaultOptions() Options {
	return Options{
		AnalyzeColors: true,
		DetectObjects: true,
		Sample:        vision.DefaultSampleOptions(),
	}
}

// Analyzer is safe for concurrent use; it holds no per-call state.
type Analyzer struct {
	opts       Options
	backend    backend.Backend
	proc       *processing.Processor
	classifier *classifier.Classifier
	log        *logrus.Entry
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithOptions replaces the pipeline toggles.
func WithOptions(o Options) Option {
	return func(a *Analyzer) { a.opts = o }
}

// WithBackend runs b after the heuristic stages. A nil backend means
// heuristic analysis only.
func WithBackend(b backend.Backend) Option {
	return func(a *Analyzer) { a.backend = b }
}

// WithLogger sets the log entry.
func WithLogger(l *logrus.Entry) Option {
	return func(a *Analyzer) { a.log = l }
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		opts:       DefaultOptions(),
		proc:       processing.NewProcessor(),
		classifier: classifier.New(),
		log:        logger.Component("analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ModelLabel names the configured backend.
func (a *Analyzer) ModelLabel() string {
	if a.backend == nil {
		return BasicModelLabel
	}
	return a.backend.Label()
}

// Analyze decodes data and analyzes it.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (*types.AnalysisResult, error) {
	start := time.Now()

	img, err := a.proc.Decode(data)
	if err != nil {
		return nil, err
	}

	result, err := a.AnalyzeImage(ctx, img)
	if err != nil {
		return nil, err
	}
	result.ImageType = processing.DetectType(data)
	result.AnalysisTimeMs = float64(time.Since(start).Microseconds()) / 1000

	a.log.WithFields(logrus.Fields{
		"size":     fmt.Sprintf("%dx%d", result.Width, result.Height),
		"type":     result.ImageType,
		"scene":    result.SceneType,
		"model":    result.ModelUsed,
		"backend":  result.BackendStatus,
		"duration": result.AnalysisTimeMs,
	}).Debug("analysis complete")
	return result, nil
}

// AnalyzeImage analyzes an already decoded image. ImageType is left empty
// since the container format is unknown.
func (a *Analyzer) AnalyzeImage(ctx context.Context, img image.Image) (*types.AnalysisResult, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	c := a.classifier.Start(w, h)
	var samples []types.ColorSample
	if a.opts.AnalyzeColors {
		samples = vision.SampleColors(img, a.opts.Sample)
	}
	a.classifier.Finish(c, samples)

	result := &types.AnalysisResult{
		Success:       true,
		Width:         w,
		Height:        h,
		Tags:          c.Tags,
		Description:   c.Description,
		Confidence:    c.Confidence,
		Objects:       []types.DetectedObject{},
		Colors:        vision.ToColorInfo(samples),
		SceneType:     c.SceneType,
		ModelUsed:     a.ModelLabel(),
		BackendStatus: BackendStatusNone,
	}
	if a.opts.DetectObjects {
		result.Objects = append(result.Objects, detection.Synthesize(c.Signals, c.SceneType)...)
	}

	if a.backend == nil {
		return result, nil
	}

	out, err := a.backend.Analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	result.BackendStatus = string(out.Status)
	if out.Status != backend.StatusInference {
		a.log.WithFields(logrus.Fields{
			"backend": a.backend.Kind(),
			"reason":  out.Reason,
		}).Debug("backend did not run inference, keeping heuristic result")
		return result, nil
	}
	merge(result, out, a.opts.DetectObjects)
	return result, nil
}

// merge folds a real inference outcome into the heuristic result. Model
// values win where the model produced one.
func merge(r *types.AnalysisResult, out backend.Outcome, objects bool) {
	seen := make(map[string]bool, len(r.Tags))
	for _, t := range r.Tags {
		seen[t] = true
	}
	for _, t := range out.Tags {
		if !seen[t] {
			seen[t] = true
			r.Tags = append(r.Tags, t)
		}
	}
	if objects {
		r.Objects = append(r.Objects, out.Objects...)
	}
	if out.Description != "" {
		r.Description = out.Description
	}
	if out.Confidence > 0 {
		r.Confidence = out.Confidence
	}
	if out.SceneType != "" {
		r.SceneType = out.SceneType
	}
}

// BatchAnalyze analyzes every input. Failures are reported inline and
// never abort the batch; the result has one entry per input.
func (a *Analyzer) BatchAnalyze(ctx context.Context, inputs [][]byte) []types.AnalysisResult {
	results := make([]types.AnalysisResult, len(inputs))
	for i, data := range inputs {
		r, err := a.Analyze(ctx, data)
		if err != nil {
			a.log.WithError(err).WithField("item", i).Warn("batch item failed")
			results[i] = types.FailedAnalysis(fmt.Errorf("item %d: %w", i, err))
			continue
		}
		results[i] = *r
	}
	return results
}
