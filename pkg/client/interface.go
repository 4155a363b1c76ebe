// Package client defines the transport contract for generative vision
// models and the tolerant parser for their JSON answers.
package client

import (
	"context"

	"github.com/menta2k/pixuli/pkg/types"
)

// VisionClient talks to a generative vision model.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.VisionReply, error)
}
