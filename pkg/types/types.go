package types

import "strings"

// Format names a raster container format supported for conversion.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// AllFormats lists the supported target formats in display order.
func AllFormats() []Format {
	return []Format{FormatJPEG, FormatPNG, FormatWebP, FormatGIF, FormatBMP, FormatTIFF}
}

// ParseFormat maps a user supplied format name (or file extension) to a Format.
// The second return value is false for unknown names.
func ParseFormat(s string) (Format, bool) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	case "gif":
		return FormatGIF, true
	case "bmp":
		return FormatBMP, true
	case "tif", "tiff":
		return FormatTIFF, true
	}
	return "", false
}

// BoundingBox is either normalized to [0,1] or expressed in pixels,
// depending on Pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Pixels bool    `json:"pixels,omitempty"`
}

// DetectedObject is either a synthetic placeholder derived from heuristics
// or a detection reported by an inference backend.
type DetectedObject struct {
	Name       string      `json:"name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
	Category   string      `json:"category"`
	Synthetic  bool        `json:"synthetic"`
	Source     string      `json:"source"`
}

// ColorSample is one histogram bucket produced by grid sampling.
type ColorSample struct {
	RGB        [3]uint8 `json:"rgb"`
	Count      uint32   `json:"count"`
	Percentage float64  `json:"percentage"`
}

// ColorInfo is a named, hex-formatted ColorSample.
type ColorInfo struct {
	Name       string   `json:"name"`
	RGB        [3]uint8 `json:"rgb"`
	Hex        string   `json:"hex"`
	Count      uint32   `json:"count"`
	Percentage float64  `json:"percentage"`
}

// AnalysisResult is the outcome of analyzing a single image.
type AnalysisResult struct {
	Success        bool             `json:"success"`
	Error          string           `json:"error,omitempty"`
	ImageType      string           `json:"image_type"`
	Width          int              `json:"width"`
	Height         int              `json:"height"`
	Tags           []string         `json:"tags"`
	Description    string           `json:"description"`
	Confidence     float64          `json:"confidence"`
	Objects        []DetectedObject `json:"objects"`
	Colors         []ColorInfo      `json:"colors"`
	SceneType      string           `json:"scene_type"`
	AnalysisTimeMs float64          `json:"analysis_time_ms"`
	ModelUsed      string           `json:"model_used"`
	BackendStatus  string           `json:"backend_status"`
}

// FailedAnalysis is the placeholder emitted for an item that failed inside a batch.
func FailedAnalysis(err error) AnalysisResult {
	return AnalysisResult{
		Success:   false,
		Error:     err.Error(),
		ImageType: "unknown",
		Tags:      []string{},
		Objects:   []DetectedObject{},
		Colors:    []ColorInfo{},
		SceneType: "unknown",
	}
}

// ResizeRequest describes an optional resize. A nil dimension is absent.
// A nil MaintainAspectRatio means true.
type ResizeRequest struct {
	Width               *int  `json:"width,omitempty"`
	Height              *int  `json:"height,omitempty"`
	MaintainAspectRatio *bool `json:"maintain_aspect_ratio,omitempty"`
}

// KeepAspect reports whether the aspect ratio must be preserved.
func (r *ResizeRequest) KeepAspect() bool {
	return r.MaintainAspectRatio == nil || *r.MaintainAspectRatio
}

// NewResize builds a ResizeRequest; zero or negative arguments mean "absent".
func NewResize(width, height int, maintainAspectRatio bool) *ResizeRequest {
	r := &ResizeRequest{MaintainAspectRatio: &maintainAspectRatio}
	if width > 0 {
		r.Width = &width
	}
	if height > 0 {
		r.Height = &height
	}
	return r
}

// ConversionRequest describes a single format conversion.
type ConversionRequest struct {
	TargetFormat         Format         `json:"target_format"`
	Quality              int            `json:"quality"`
	PreserveTransparency bool           `json:"preserve_transparency"`
	Lossless             bool           `json:"lossless"`
	Resize               *ResizeRequest `json:"resize,omitempty"`
	// MaxDimension caps the longest side when Resize is nil. Zero disables it.
	MaxDimension         int            `json:"max_dimension,omitempty"`
}

// ConversionResult carries the encoded bytes and statistics of a conversion.
type ConversionResult struct {
	Data             []byte  `json:"data"`
	Format           Format  `json:"format"`
	MimeType         string  `json:"mime_type"`
	Checksum         string  `json:"checksum"`
	OriginalSize     int     `json:"original_size"`
	ConvertedSize    int     `json:"converted_size"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	OriginalWidth    int     `json:"original_width"`
	OriginalHeight   int     `json:"original_height"`
	ConversionTimeMs float64 `json:"conversion_time_ms"`
	SubstitutedCodec bool    `json:"substituted_codec"`
}

// ImageInfo is the cheap metadata read by Info: dimensions, pixel layout
// and channel count of the decoded buffer.
type ImageInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	MimeType string `json:"mime_type"`
	Layout   string `json:"layout"`
	Channels int    `json:"channels"`
	Size     int    `json:"size"`
}

// SizeRatio reports converted/original size, or 0 for empty input.
func (r ConversionResult) SizeRatio() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return float64(r.ConvertedSize) / float64(r.OriginalSize)
}

// Savings reports the fraction of bytes saved, 1 - SizeRatio. It is
// negative when the output grew, and 0 for empty input.
func (r ConversionResult) Savings() float64 {
	if r.OriginalSize == 0 {
		return 0
	}
	return 1 - r.SizeRatio()
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Primary represents the primary subject reported by a vision model
type Primary struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	Cx         float64 `json:"cx"`
	Cy         float64 `json:"cy"`
}

// VisionReply is the structured answer of a generative vision model
type VisionReply struct {
	Primary     Primary  `json:"primary"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Scene       string   `json:"scene"`
}
