// Package backend selects the analysis strategy that runs after the
// heuristic pipeline. Backends without a real implementation report
// StatusUnimplemented instead of pretending to have run a model.
package backend

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/pixuli/internal/logger"
	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/client"
	"github.com/menta2k/pixuli/pkg/gemini"
	"github.com/menta2k/pixuli/pkg/llamacpp"
	"github.com/menta2k/pixuli/pkg/ollama"
	"github.com/menta2k/pixuli/pkg/types"
)

// Kind identifies a backend strategy.
type Kind string

const (
	KindHeuristic      Kind = "heuristic"
	KindTensorFlow     Kind = "tensorflow"
	KindTensorFlowLite Kind = "tensorflow-lite"
	KindONNX           Kind = "onnx"
	KindLocalLLM       Kind = "local-llm"
	KindRemoteAPI      Kind = "remote-api"
)

// Kinds lists every selectable backend.
func Kinds() []Kind {
	return []Kind{KindHeuristic, KindTensorFlow, KindTensorFlowLite, KindONNX, KindLocalLLM, KindRemoteAPI}
}

// ParseKind maps a config value to a Kind. Empty means heuristic.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindHeuristic, true
	}
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Status tells real inference apart from a placeholder.
type Status string

const (
	StatusInference     Status = "inference"
	StatusUnimplemented Status = "unimplemented"
)

// Outcome is what a backend contributes to an analysis.
type Outcome struct {
	Status      Status
	Tags        []string
	Description string
	Confidence  float64
	SceneType   string
	Objects     []types.DetectedObject

	// Reason explains an unimplemented outcome.
	Reason string
}

// Unimplemented builds a placeholder outcome.
func Unimplemented(reason string) Outcome {
	return Outcome{Status: StatusUnimplemented, Reason: reason}
}

// Backend is one analysis strategy. Implementations are safe for
// concurrent use once constructed.
type Backend interface {
	Kind() Kind
	// Label names the backend for AnalysisResult.ModelUsed.
	Label() string
	Analyze(ctx context.Context, img image.Image) (Outcome, error)
}

// Describer is implemented by backends that can answer a free-form
// question about an image. Generative backends use it as a vision check.
type Describer interface {
	Describe(ctx context.Context, img image.Image) (string, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind                Kind
	ModelPath           string
	LabelsPath          string
	UseGPU              bool
	ConfidenceThreshold float64
	InputSize           int
	Endpoint            string
	Provider            string
	APIKey              string
	ModelName           string
	DefaultLabels       []string
}

// DefaultConfig returns the heuristic-only configuration.
func DefaultConfig() Config {
	return Config{
		Kind:                KindHeuristic,
		ConfidenceThreshold: 0.5,
		InputSize:           416,
		Provider:            "ollama",
	}
}

// Option customizes New.
type Option func(*options)

type options struct {
	runtime Runtime
	client  client.VisionClient
	log     *logrus.Entry
}

// WithRuntime links an inference runtime into the session backend.
func WithRuntime(r Runtime) Option {
	return func(o *options) { o.runtime = r }
}

// WithVisionClient overrides the transport of generative backends.
func WithVisionClient(c client.VisionClient) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the log entry used by the backend.
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.log = l }
}

// New builds the backend for cfg.Kind. The heuristic kind has no backend
// and returns nil.
func New(cfg Config, opts ...Option) (Backend, error) {
	o := options{log: logger.Component("backend")}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.5
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 416
	}

	switch cfg.Kind {
	case KindHeuristic, "":
		return nil, nil

	case KindTensorFlow, KindTensorFlowLite:
		if cfg.ModelPath == "" {
			return nil, apperrors.InvalidInput("backend", fmt.Sprintf("%s backend requires a model path", cfg.Kind), nil)
		}
		return &stub{kind: cfg.Kind, label: tensorLabel(cfg.Kind),
			reason: fmt.Sprintf("%s inference is not available in this build", cfg.Kind)}, nil

	case KindONNX:
		if cfg.ModelPath == "" {
			return nil, apperrors.InvalidInput("backend", "onnx backend requires a model path", nil)
		}
		return NewSessionBackend(cfg, o.runtime, o.log), nil

	case KindLocalLLM:
		vc := o.client
		if vc == nil && cfg.Endpoint != "" {
			if strings.EqualFold(cfg.Provider, "llamacpp") {
				vc = llamacpp.NewClient(cfg.Endpoint)
			} else {
				c, err := ollama.NewClient(cfg.Endpoint, nil)
				if err != nil {
					return nil, apperrors.InvalidInput("backend", "bad local model endpoint", err)
				}
				vc = c
			}
		}
		label := fmt.Sprintf("Local LLM (%s)", cfg.ModelName)
		if vc == nil {
			return &stub{kind: cfg.Kind, label: label, reason: "no local model endpoint configured"}, nil
		}
		return newGenerative(cfg.Kind, label, cfg.ModelName, vc, o.log), nil

	case KindRemoteAPI:
		vc := o.client
		if vc == nil && cfg.APIKey != "" {
			vc = gemini.NewClient(cfg.APIKey)
		}
		model := cfg.ModelName
		if model == "" {
			model = gemini.DefaultModel
		}
		label := fmt.Sprintf("Remote API (%s)", model)
		if vc == nil {
			return &stub{kind: cfg.Kind, label: label, reason: "no api key configured"}, nil
		}
		return newGenerative(cfg.Kind, label, model, vc, o.log), nil
	}

	return nil, apperrors.InvalidInput("backend", fmt.Sprintf("unknown backend %q", cfg.Kind), nil)
}

func tensorLabel(k Kind) string {
	if k == KindTensorFlowLite {
		return "TensorFlow Lite"
	}
	return "TensorFlow"
}

// stub is a backend with no inference path.
type stub struct {
	kind   Kind
	label  string
	reason string
}

func (s *stub) Kind() Kind    { return s.kind }
func (s *stub) Label() string { return s.label }

func (s *stub) Analyze(context.Context, image.Image) (Outcome, error) {
	return Unimplemented(s.reason), nil
}
