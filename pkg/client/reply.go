package client

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/menta2k/pixuli/pkg/types"
)

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing     = regexp.MustCompile(`,(\s*[}\]])`)
)

var fallbackBox = types.Box{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}

func fallbackReply(label, description string, tags ...string) *types.VisionReply {
	return &types.VisionReply{
		Primary: types.Primary{
			Label:      label,
			Confidence: 0.1,
			Box:        fallbackBox,
			Cx:         0.5,
			Cy:         0.5,
		},
		Description: description,
		Tags:        tags,
	}
}

// ParseVisionReply decodes a model answer. Malformed answers never fail:
// they yield a low-confidence fallback reply whose label says what went wrong.
func ParseVisionReply(raw string) *types.VisionReply {
	raw = SanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return fallbackReply("unclear image", "Model returned non-JSON response", "unclear", "non-json", "fallback")
	}

	var reply types.VisionReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return fallbackReply("parse error", "Failed to parse model response", "parse-error", "fallback")
	}

	if reply.Primary.Label == "" && reply.Primary.Confidence == 0 {
		if reply.Primary.Cx == 0 && reply.Primary.Cy == 0 {
			reply.Primary.Cx, reply.Primary.Cy = 0.5, 0.5
		}
		if reply.Primary.Box.W == 0 && reply.Primary.Box.H == 0 {
			reply.Primary.Box = fallbackBox
		}
	}
	return &reply
}

// SanitizeModelJSON strips code fences, comments and trailing commas, and
// keeps only the outermost object.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
