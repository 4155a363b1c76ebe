// Package convert re-encodes images between formats with optional resizing.
package convert

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/menta2k/pixuli/internal/logger"
	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/processing"
	"github.com/menta2k/pixuli/pkg/resize"
	"github.com/menta2k/pixuli/pkg/types"
)

const (
	MinQuality = 1
	MaxQuality = 100
)

// Converter runs decode, resize and encode for a single image.
type Converter struct {
	proc *processing.Processor
	log  *logrus.Entry
}

// Option customizes a Converter.
type Option func(*Converter)

// WithProcessor replaces the codec adapter, e.g. to use a custom encoder registry.
func WithProcessor(p *processing.Processor) Option {
	return func(c *Converter) { c.proc = p }
}

// WithLogger sets the log entry.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Converter) { c.log = l }
}

// New creates a Converter with the default encoder registry.
func New(opts ...Option) *Converter {
	c := &Converter{
		proc: processing.NewProcessor(),
		log:  logger.Component("convert"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks everything about req that can be checked without
// decoding: quality range, target format and resize bounds.
func (c *Converter) Validate(req types.ConversionRequest) error {
	if req.Quality < MinQuality || req.Quality > MaxQuality {
		return apperrors.InvalidInput("convert", fmt.Sprintf("quality %d out of range [%d, %d]", req.Quality, MinQuality, MaxQuality), nil)
	}
	if !c.proc.Registry().Supports(req.TargetFormat) {
		return apperrors.InvalidInput("convert", fmt.Sprintf("unsupported target format %q", req.TargetFormat), nil)
	}
	if req.MaxDimension < 0 || req.MaxDimension > resize.MaxDimension {
		return apperrors.InvalidInput("convert", fmt.Sprintf("max_dimension %d out of range [0, %d]", req.MaxDimension, resize.MaxDimension), nil)
	}
	return resize.Validate(req.Resize)
}

// Convert decodes data, applies the planned resize and encodes to the
// requested format.
func (c *Converter) Convert(data []byte, req types.ConversionRequest) (*types.ConversionResult, error) {
	start := time.Now()

	if err := c.Validate(req); err != nil {
		return nil, err
	}

	img, err := c.proc.Decode(data)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	origW, origH := b.Dx(), b.Dy()
	plan := req.Resize
	if plan == nil {
		plan = resize.Recommend(origW, origH, req.MaxDimension)
	}
	w, h := resize.Plan(origW, origH, plan)
	img = resize.Apply(img, w, h)

	out, substituted, err := c.proc.Encode(img, req.TargetFormat, processing.EncodeOptions{
		Quality:       req.Quality,
		Lossless:      req.Lossless,
		PreserveAlpha: req.PreserveTransparency,
	})
	if err != nil {
		return nil, err
	}

	result := &types.ConversionResult{
		Data:             out,
		Format:           req.TargetFormat,
		MimeType:         processing.DetectMIME(out),
		Checksum:         Checksum(out),
		OriginalSize:     len(data),
		ConvertedSize:    len(out),
		Width:            w,
		Height:           h,
		OriginalWidth:    origW,
		OriginalHeight:   origH,
		ConversionTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		SubstitutedCodec: substituted,
	}

	entry := c.log.WithFields(logrus.Fields{
		"format":   req.TargetFormat,
		"from":     fmt.Sprintf("%dx%d", origW, origH),
		"to":       fmt.Sprintf("%dx%d", w, h),
		"bytes":    len(out),
		"ratio":    result.SizeRatio(),
		"duration": result.ConversionTimeMs,
	})
	if substituted {
		entry.Warn("target format encoded by a substitute codec")
	} else {
		entry.Debug("conversion complete")
	}
	return result, nil
}

// BatchConvert converts every input with the same request. The first
// failure aborts the batch and no results are returned.
func (c *Converter) BatchConvert(inputs [][]byte, req types.ConversionRequest) ([]*types.ConversionResult, error) {
	if err := c.Validate(req); err != nil {
		return nil, err
	}

	results := make([]*types.ConversionResult, 0, len(inputs))
	for i, data := range inputs {
		r, err := c.Convert(data, req)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// Checksum returns the xxHash64 of data as 16 hex characters.
func Checksum(data []byte) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], xxhash.Sum64(data))
	return hex.EncodeToString(buf[:])
}
