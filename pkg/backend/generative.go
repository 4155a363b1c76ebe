package backend

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/client"
	"github.com/menta2k/pixuli/pkg/detection"
	"github.com/menta2k/pixuli/pkg/processing"
)

// maxModelImageDim bounds the longest side sent to a vision model.
const maxModelImageDim = 1024

// generative asks a vision language model for tags, scene and subject.
type generative struct {
	kind     Kind
	label    string
	model    string
	detector *detection.SubjectDetector
	proc     *processing.Processor
	log      *logrus.Entry
}

func newGenerative(kind Kind, label, model string, vc client.VisionClient, log *logrus.Entry) *generative {
	return &generative{
		kind:     kind,
		label:    label,
		model:    model,
		detector: detection.NewSubjectDetector(vc),
		proc:     processing.NewProcessor(),
		log:      log,
	}
}

func (g *generative) Kind() Kind    { return g.kind }
func (g *generative) Label() string { return g.label }

// Describe returns the model's free-form answer for img.
func (g *generative) Describe(ctx context.Context, img image.Image) (string, error) {
	b64, err := g.proc.PrepareImageForModel(img, "jpg", maxModelImageDim, 85)
	if err != nil {
		return "", apperrors.EncodingFailure("backend", "failed to prepare image for model", err)
	}
	text, err := g.detector.Describe(ctx, g.model, b64)
	if err != nil {
		return "", apperrors.BackendFailure(string(g.kind), "vision model request failed", err)
	}
	if text == "" {
		return "", apperrors.BackendFailure(string(g.kind), "vision model returned an empty answer", nil)
	}
	return text, nil
}

func (g *generative) Analyze(ctx context.Context, img image.Image) (Outcome, error) {
	b64, err := g.proc.PrepareImageForModel(img, "jpg", maxModelImageDim, 85)
	if err != nil {
		return Outcome{}, apperrors.EncodingFailure("backend", "failed to prepare image for model", err)
	}

	reply, err := g.detector.Detect(ctx, g.model, b64)
	if err != nil {
		return Outcome{}, apperrors.BackendFailure(string(g.kind), "vision model request failed", err)
	}
	g.log.WithFields(logrus.Fields{
		"model":   g.model,
		"subject": reply.Primary.Label,
		"tags":    len(reply.Tags),
	}).Debug("vision model replied")

	out := Outcome{
		Status:      StatusInference,
		Tags:        reply.Tags,
		Description: reply.Description,
		Confidence:  reply.Primary.Confidence,
		SceneType:   reply.Scene,
	}
	if obj, ok := detection.SubjectObject(reply, string(g.kind)); ok {
		out.Objects = append(out.Objects, obj)
	}
	return out, nil
}
