// Package detection produces object entries for an analysis: placeholder
// objects derived from classifier signals, and subjects reported by
// generative vision models.
package detection

import (
	"github.com/menta2k/pixuli/pkg/classifier"
	"github.com/menta2k/pixuli/pkg/types"
)

// SourceHeuristic marks objects that did not come from a model.
const SourceHeuristic = "heuristic"

var (
	fullFrame    = types.BoundingBox{X: 0, Y: 0, Width: 1, Height: 1}
	centeredTall = types.BoundingBox{X: 0.3, Y: 0.1, Width: 0.4, Height: 0.8}
)

func placeholder(name, category string, confidence float64, box types.BoundingBox) types.DetectedObject {
	return types.DetectedObject{
		Name:       name,
		Confidence: confidence,
		BBox:       box,
		Category:   category,
		Synthetic:  true,
		Source:     SourceHeuristic,
	}
}

// Synthesize derives at most one placeholder per signal: aspect, dominant
// color, then resolution or scene. The result is deterministic.
func Synthesize(s classifier.Signals, sceneType string) []types.DetectedObject {
	objects := make([]types.DetectedObject, 0, 3)

	switch s.Aspect {
	case classifier.AspectUltrawide:
		objects = append(objects, placeholder("panoramic-scenery", "landscape", 0.85, fullFrame))
	case classifier.AspectLandscape:
		objects = append(objects, placeholder("horizontal-scene", "scene", 0.75, fullFrame))
	case classifier.AspectTall, classifier.AspectPortrait:
		objects = append(objects, placeholder("portrait-subject", "portrait", 0.80, centeredTall))
	case classifier.AspectSquare:
		objects = append(objects, placeholder("square-composition", "composition", 0.90, fullFrame))
	}

	switch s.Family {
	case "green":
		objects = append(objects, placeholder("vegetation", "nature", 0.80,
			types.BoundingBox{X: 0, Y: 0, Width: 1, Height: 0.7}))
	case "blue":
		objects = append(objects, placeholder("sky-or-water", "background", 0.75,
			types.BoundingBox{X: 0, Y: 0, Width: 1, Height: 0.5}))
	case "red", "warm":
		if s.Band == "bright" || s.Band == "light" {
			objects = append(objects, placeholder("warm-lighting", "lighting", 0.65, fullFrame))
		}
	}

	switch {
	case s.Resolution == classifier.ResolutionUltra || s.Resolution == classifier.ResolutionHigh:
		objects = append(objects, placeholder("high-quality-image", "quality", 0.95, fullFrame))
	case sceneType == "low-key":
		objects = append(objects, placeholder("low-light-scene", "lighting", 0.60, fullFrame))
	case sceneType == "high-key":
		objects = append(objects, placeholder("bright-scene", "lighting", 0.60, fullFrame))
	}

	return objects
}
