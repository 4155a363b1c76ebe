package backend

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/pixuli/pkg/apperrors"
)

// Provider is an execution provider an inference session can run under.
type Provider string

const (
	ProviderCUDA     Provider = "cuda"
	ProviderDirectML Provider = "directml"
	ProviderCPU      Provider = "cpu"
)

// ProviderOrder returns the providers to try, accelerated first.
func ProviderOrder(useGPU bool) []Provider {
	if useGPU {
		return []Provider{ProviderCUDA, ProviderDirectML, ProviderCPU}
	}
	return []Provider{ProviderCPU}
}

// Runtime opens inference sessions. No runtime is linked by default;
// callers that have one inject it with WithRuntime.
type Runtime interface {
	NewSession(modelPath string, provider Provider) (Session, error)
}

// Session runs a loaded model. Run must be safe for concurrent use.
type Session interface {
	// Run feeds a [1,3,size,size] input and returns the first output
	// tensor with its shape.
	Run(input []float32, shape [4]int64) ([]float32, []int64, error)
	Close() error
}

// SessionBackend is the general-purpose inference-session backend.
// Initialization (model check, label load, provider negotiation) runs
// once, on first use, under a sync.Once.
type SessionBackend struct {
	cfg     Config
	runtime Runtime
	log     *logrus.Entry

	once     sync.Once
	initErr  error
	labels   []string
	session  Session
	provider Provider
}

// NewSessionBackend creates the backend. No I/O happens until Init or Analyze.
func NewSessionBackend(cfg Config, rt Runtime, log *logrus.Entry) *SessionBackend {
	return &SessionBackend{cfg: cfg, runtime: rt, log: log}
}

func (s *SessionBackend) Kind() Kind    { return KindONNX }
func (s *SessionBackend) Label() string { return "ONNX" }

// Init performs the one-time initialization and returns its result.
func (s *SessionBackend) Init() error {
	s.once.Do(func() { s.initErr = s.init() })
	return s.initErr
}

func (s *SessionBackend) init() error {
	start := time.Now()

	if _, err := os.Stat(s.cfg.ModelPath); err != nil {
		return apperrors.ModelUnavailable("onnx", fmt.Sprintf("model file not found: %s", s.cfg.ModelPath), err)
	}

	labelsPath := s.cfg.LabelsPath
	if labelsPath == "" {
		labelsPath = LabelsPathFor(s.cfg.ModelPath)
	}
	labels, err := LoadLabels(labelsPath, s.cfg.DefaultLabels)
	if err != nil {
		return err
	}
	s.labels = labels

	if s.runtime == nil {
		s.log.WithField("model", s.cfg.ModelPath).Warn("no inference runtime linked, onnx backend is a placeholder")
		return nil
	}

	var failures []string
	for _, p := range ProviderOrder(s.cfg.UseGPU) {
		sess, err := s.runtime.NewSession(s.cfg.ModelPath, p)
		if err != nil {
			s.log.WithError(err).WithField("provider", p).Warn("execution provider unavailable")
			failures = append(failures, fmt.Sprintf("%s: %v", p, err))
			continue
		}
		s.session, s.provider = sess, p
		break
	}
	if s.session == nil {
		return apperrors.BackendFailure("onnx", "no execution provider could load the model: "+strings.Join(failures, "; "), nil)
	}

	s.log.WithFields(logrus.Fields{
		"model":    s.cfg.ModelPath,
		"provider": s.provider,
		"labels":   len(s.labels),
		"init_ms":  time.Since(start).Milliseconds(),
	}).Info("onnx session initialized")
	return nil
}

// Provider reports the negotiated execution provider, empty before Init.
func (s *SessionBackend) Provider() Provider { return s.provider }

// Labels returns the loaded vocabulary.
func (s *SessionBackend) Labels() []string { return s.labels }

func (s *SessionBackend) Analyze(ctx context.Context, img image.Image) (Outcome, error) {
	if err := s.Init(); err != nil {
		return Outcome{}, err
	}
	if s.session == nil {
		return Unimplemented("no inference runtime linked"), nil
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	size := s.cfg.InputSize
	input := Preprocess(img, size)
	data, shape, err := s.session.Run(input, [4]int64{1, 3, int64(size), int64(size)})
	if err != nil {
		return Outcome{}, apperrors.BackendFailure("onnx", "inference failed", err)
	}

	b := img.Bounds()
	objects := Postprocess(data, shape, s.labels, b.Dx(), b.Dy(), s.cfg.ConfidenceThreshold)

	out := Outcome{Status: StatusInference, Objects: objects, Tags: []string{}, SceneType: "object_detection"}
	seen := map[string]bool{}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
		if !seen[o.Name] {
			seen[o.Name] = true
			out.Tags = append(out.Tags, o.Name)
		}
		out.Confidence = max(out.Confidence, o.Confidence)
	}
	if len(objects) > 0 {
		out.Description = "detected: " + strings.Join(names, ", ")
	} else {
		out.Description = "no distinct objects detected"
	}
	return out, nil
}

// Close releases the session, if one was opened.
func (s *SessionBackend) Close() error {
	if s.session != nil {
		return s.session.Close()
	}
	return nil
}
