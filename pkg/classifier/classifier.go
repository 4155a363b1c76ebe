// Package classifier labels images from measurable signals: dimensions,
// pixel count and dominant color. No learned model is involved.
//
// Passes run in a fixed order (aspect, resolution, size, composition, color)
// and each may overwrite SceneType, so the final scene is the label of the
// last pass that set one.
package classifier

import (
	"fmt"
	"strings"

	"github.com/menta2k/pixuli/pkg/types"
	"github.com/menta2k/pixuli/pkg/vision"
)

// Confidence constants, selected by which path produced the result.
const (
	ConfidenceHeuristic    = 0.75
	ConfidenceGeometryOnly = 0.6
)

// Aspect is the aspect-ratio bucket.
type Aspect string

const (
	AspectUltrawide Aspect = "ultrawide"
	AspectLandscape Aspect = "landscape"
	AspectTall      Aspect = "tall"
	AspectPortrait  Aspect = "portrait"
	AspectSquare    Aspect = "square"
)

// Resolution is the pixel-count bucket.
type Resolution string

const (
	ResolutionUltra     Resolution = "ultra"
	ResolutionHigh      Resolution = "high"
	ResolutionStandard  Resolution = "standard"
	ResolutionLow       Resolution = "low"
	ResolutionThumbnail Resolution = "thumbnail"
)

// Signals are the measurements the passes bucketed. The object synthesizer
// derives its placeholders from the same values.
type Signals struct {
	Width      int
	Height     int
	Ratio      float64
	Megapixels float64
	Aspect     Aspect
	Resolution Resolution

	// Set by the color pass. Family is empty when no colors were sampled.
	Dominant   [3]uint8
	Family     string
	Band       string
	Brightness float64
}

// Classification accumulates the output of the passes.
type Classification struct {
	Tags        []string
	Fragments   []string
	SceneType   string
	Description string
	Confidence  float64
	Signals     Signals
}

// Pass is one stage of the cascade.
type Pass func(c *Classification, colors []types.ColorSample)

// Classifier runs geometry passes before color sampling and color passes after.
type Classifier struct {
	geometry []Pass
	color    []Pass
}

// New returns the default cascade.
func New() *Classifier {
	return &Classifier{
		geometry: []Pass{AspectPass, ResolutionPass, SizePass, CompositionPass},
		color:    []Pass{ColorPass},
	}
}

// Start runs the geometry passes for an image of width x height.
func (cl *Classifier) Start(width, height int) *Classification {
	c := &Classification{
		Tags:      []string{},
		SceneType: "ordinary-image",
		Signals:   Signals{Width: width, Height: height},
	}
	if height > 0 {
		c.Signals.Ratio = float64(width) / float64(height)
	}
	c.Signals.Megapixels = float64(width) * float64(height) / 1e6

	for _, p := range cl.geometry {
		p(c, nil)
	}
	return c
}

// Finish runs the color passes and assembles description and confidence.
func (cl *Classifier) Finish(c *Classification, colors []types.ColorSample) {
	for _, p := range cl.color {
		p(c, colors)
	}
	c.Description = AssembleDescription(c.Fragments, c.Signals.Width, c.Signals.Height)
	if len(colors) > 0 {
		c.Confidence = ConfidenceHeuristic
	} else {
		c.Confidence = ConfidenceGeometryOnly
	}
}

// Classify runs the whole cascade in one call.
func (cl *Classifier) Classify(width, height int, colors []types.ColorSample) *Classification {
	c := cl.Start(width, height)
	cl.Finish(c, colors)
	return c
}

func (c *Classification) tag(tags ...string) {
	c.Tags = append(c.Tags, tags...)
}

func (c *Classification) fragment(s string) {
	c.Fragments = append(c.Fragments, s)
}

// BucketAspect maps width/height to an aspect bucket.
func BucketAspect(ratio float64) Aspect {
	switch {
	case ratio > 1.8:
		return AspectUltrawide
	case ratio > 1.3:
		return AspectLandscape
	case ratio < 0.56:
		return AspectTall
	case ratio < 0.78:
		return AspectPortrait
	}
	return AspectSquare
}

// BucketResolution maps megapixels to a resolution bucket.
func BucketResolution(mp float64) Resolution {
	switch {
	case mp > 12:
		return ResolutionUltra
	case mp > 6:
		return ResolutionHigh
	case mp > 2:
		return ResolutionStandard
	case mp > 0.5:
		return ResolutionLow
	}
	return ResolutionThumbnail
}

// AspectPass tags orientation.
func AspectPass(c *Classification, _ []types.ColorSample) {
	s := &c.Signals
	s.Aspect = BucketAspect(s.Ratio)
	size := fmt.Sprintf("(%d×%dpx)", s.Width, s.Height)

	switch s.Aspect {
	case AspectUltrawide:
		c.tag("horizontal", "ultrawide")
		c.fragment("a wide panoramic image " + size)
		c.SceneType = "panorama"
	case AspectLandscape:
		c.tag("horizontal")
		c.fragment("a landscape image " + size)
		c.SceneType = "landscape"
	case AspectTall:
		c.tag("vertical", "phone-screen")
		c.fragment("a tall vertical image " + size)
		c.SceneType = "phone-vertical"
	case AspectPortrait:
		c.tag("vertical")
		c.fragment("a portrait image " + size)
		c.SceneType = "portrait"
	default:
		c.tag("square")
		c.fragment("a square image " + size)
		c.SceneType = "square"
	}
}

// ResolutionPass tags image quality by pixel count.
func ResolutionPass(c *Classification, _ []types.ColorSample) {
	s := &c.Signals
	s.Resolution = BucketResolution(s.Megapixels)

	switch s.Resolution {
	case ResolutionUltra:
		c.tag("ultra-hd", "large-image")
		c.fragment("ultra-high resolution")
		c.SceneType = "ultra-high-resolution"
	case ResolutionHigh:
		c.tag("hd", "large-image")
		c.fragment("high resolution")
		c.SceneType = "hd-large"
	case ResolutionStandard:
		c.tag("medium-quality", "standard-size")
		c.SceneType = "standard"
	case ResolutionLow:
		c.tag("sd")
		c.SceneType = "ordinary"
	default:
		c.tag("low-resolution", "small-image")
		c.fragment("low resolution")
		c.SceneType = "thumbnail"
	}
}

// SizePass tags by the longest side.
func SizePass(c *Classification, _ []types.ColorSample) {
	w, h := c.Signals.Width, c.Signals.Height
	switch {
	case w >= 4000 || h >= 4000:
		c.tag("oversized")
	case w >= 2500 || h >= 2500:
		c.tag("large-size")
	case w < 500 && h < 500:
		c.tag("small-size")
	}
}

// CompositionPass tags banner-like strips.
func CompositionPass(c *Classification, _ []types.ColorSample) {
	w, h := c.Signals.Width, c.Signals.Height
	switch {
	case w > h*3:
		c.tag("banner")
	case h > w*3:
		c.tag("long-vertical")
	}
}

// ColorPass tags the dominant tone and palette spread.
func ColorPass(c *Classification, colors []types.ColorSample) {
	if len(colors) == 0 {
		return
	}

	hexes := make([]string, 0, 3)
	for _, col := range colors[:min(3, len(colors))] {
		hexes = append(hexes, vision.Hex(col.RGB))
	}
	c.fragment("dominant colors " + strings.Join(hexes, "、"))

	top := colors[0]
	tone := ToneOf(top.RGB)
	c.Signals.Dominant = top.RGB
	c.Signals.Family = tone.Family
	c.Signals.Band = tone.Band
	c.Signals.Brightness = tone.Brightness
	c.tag(tone.Tag)

	switch tone.Family {
	case "white":
		c.SceneType = "high-key"
	case "black":
		c.SceneType = "low-key"
	case "green":
		c.SceneType = "nature"
	case "blue":
		c.SceneType = "sky-or-water"
	}

	if len(colors) >= 3 {
		c.tag("colorful")
	}
	switch {
	case top.Percentage > 0.7:
		c.tag("monochrome")
	case top.Percentage > 0.4:
		c.tag("dominant-tone")
	}
}

// AssembleDescription joins fragments: the first two with "。", the rest with "，".
func AssembleDescription(fragments []string, width, height int) string {
	switch len(fragments) {
	case 0:
		return fmt.Sprintf("%d×%d image", width, height)
	case 1:
		return fragments[0]
	}
	return fragments[0] + "。" + strings.Join(fragments[1:], "，")
}
