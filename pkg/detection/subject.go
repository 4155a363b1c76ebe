package detection

import (
	"context"
	"math"
	"strings"

	"github.com/menta2k/pixuli/pkg/client"
	"github.com/menta2k/pixuli/pkg/types"
)

// DescribePrompt asks for a free-form answer. A sensible reply shows the
// model can see images at all.
const DescribePrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks a generative vision model for a structured analysis
const DefaultPrompt = `You are an image analyst.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
    "cx": 0.0,
    "cy": 0.0
  },
  "description": "short neutral sentence (≤ 20 words)",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"],
  "scene": "one or two words naming the scene type"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals; else the most central salient object).
- Description must be brief and factual. Do not guess real identities.
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, use label "none" with confidence 0.0 and the box {"x":0.25,"y":0.25,"w":0.50,"h":0.50}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// SubjectDetector asks a vision model for the primary subject of an image
type SubjectDetector struct {
	client client.VisionClient
}

// NewSubjectDetector creates a detector backed by a vision client
func NewSubjectDetector(c client.VisionClient) *SubjectDetector {
	return &SubjectDetector{client: c}
}

// Detect analyzes a base64 image with the default prompt
func (d *SubjectDetector) Detect(ctx context.Context, model, imageB64 string) (*types.VisionReply, error) {
	reply, err := d.client.AnalyzeImage(ctx, model, DefaultPrompt, imageB64)
	if err != nil {
		return nil, err
	}
	return Sanitize(reply), nil
}

// Describe sends a plain question and returns the model's text answer
func (d *SubjectDetector) Describe(ctx context.Context, model, imageB64 string) (string, error) {
	text, err := d.client.SimpleQuery(ctx, model, DescribePrompt, imageB64)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Sanitize clamps the box, cleans tags and demotes fallback answers to "none".
func Sanitize(reply *types.VisionReply) *types.VisionReply {
	reply.Primary.Box = normalizeBox(reply.Primary.Box)
	reply.Primary.Confidence = clamp(reply.Primary.Confidence, 0, 1)
	reply.Tags = normalizeTags(reply.Tags)
	reply.Scene = strings.ToLower(strings.TrimSpace(reply.Scene))

	label := strings.ToLower(reply.Primary.Label)
	if label == "none" {
		return reply
	}
	for _, indicator := range []string{"unclear", "empty", "parse", "error", "fallback", "non-json"} {
		if strings.Contains(label, indicator) {
			reply.Primary.Label = "none"
			reply.Primary.Confidence = 0
			break
		}
	}
	return reply
}

// SubjectObject converts the reply's primary subject into a detected object.
// It returns false for "none" subjects.
func SubjectObject(reply *types.VisionReply, source string) (types.DetectedObject, bool) {
	if reply == nil || reply.Primary.Label == "" || strings.EqualFold(reply.Primary.Label, "none") {
		return types.DetectedObject{}, false
	}
	b := reply.Primary.Box
	return types.DetectedObject{
		Name:       reply.Primary.Label,
		Confidence: reply.Primary.Confidence,
		BBox:       types.BoundingBox{X: b.X, Y: b.Y, Width: b.W, Height: b.H},
		Category:   "subject",
		Source:     source,
	}, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func normalizeBox(b types.Box) types.Box {
	return types.Box{
		X: clamp(b.X, 0, 1),
		Y: clamp(b.Y, 0, 1),
		W: clamp(b.W, 0, 1),
		H: clamp(b.H, 0, 1),
	}
}

// normalizeTags lowercases, dedupes and keeps at most 5 tags
func normalizeTags(tags []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 5)
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == 5 {
			break
		}
	}
	return out
}
