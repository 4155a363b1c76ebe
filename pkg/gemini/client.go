// Package gemini is the remote vision API transport backed by Google Gemini.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/menta2k/pixuli/pkg/client"
	"github.com/menta2k/pixuli/pkg/types"
)

// DefaultModel is used when no model name is configured
const DefaultModel = "gemini-1.5-flash"

// Client calls the Gemini API. A new SDK client is opened per call.
type Client struct {
	APIKey string
	opts   []option.ClientOption
}

var _ client.VisionClient = (*Client)(nil)

// NewClient creates a client. Extra options (endpoint, HTTP client) are
// appended after the API key.
func NewClient(apiKey string, opts ...option.ClientOption) *Client {
	return &Client{APIKey: apiKey, opts: opts}
}

func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.generate(ctx, model, prompt, imgB64, false)
}

func (c *Client) AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.VisionReply, error) {
	text, err := c.generate(ctx, model, prompt, imgB64, true)
	if err != nil {
		return nil, err
	}
	return client.ParseVisionReply(text), nil
}

func (c *Client) generate(ctx context.Context, model, prompt, imgB64 string, jsonOnly bool) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("gemini: api key is empty")
	}
	imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
	if err != nil {
		return "", fmt.Errorf("gemini: bad base64: %w", err)
	}

	cl, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(c.APIKey)}, c.opts...)...)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer cl.Close()

	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	m := cl.GenerativeModel(strings.TrimSpace(model))
	m.GenerationConfig = genai.GenerationConfig{Temperature: ptrFloat32(0)}
	if jsonOnly {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		&genai.Blob{MIMEType: mimetype.Detect(imgBytes).String(), Data: imgBytes},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", errors.New("gemini: empty response")
	}
	return txt, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
