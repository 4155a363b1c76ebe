// Package resize computes output dimensions for resize requests.
package resize

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/pixuli/pkg/apperrors"
	"github.com/menta2k/pixuli/pkg/types"
)

// MaxDimension is the largest accepted explicit width or height.
const MaxDimension = 10000

// Validate rejects explicit dimensions outside (0, MaxDimension].
func Validate(req *types.ResizeRequest) error {
	if req == nil {
		return nil
	}
	if err := checkDimension("width", req.Width); err != nil {
		return err
	}
	return checkDimension("height", req.Height)
}

func checkDimension(name string, v *int) error {
	if v == nil {
		return nil
	}
	if *v <= 0 || *v > MaxDimension {
		return apperrors.InvalidInput("resize", fmt.Sprintf("%s %d out of range (0, %d]", name, *v, MaxDimension), nil)
	}
	return nil
}

// Plan returns the output dimensions for an image of origW x origH.
// The request must already have passed Validate.
func Plan(origW, origH int, req *types.ResizeRequest) (int, int) {
	if req == nil || origW <= 0 || origH <= 0 {
		return origW, origH
	}

	switch {
	case req.Width != nil && req.Height != nil:
		tw, th := *req.Width, *req.Height
		if !req.KeepAspect() {
			return tw, th
		}
		origRatio := float64(origW) / float64(origH)
		targetRatio := float64(tw) / float64(th)
		if origRatio > targetRatio {
			return tw, atLeastOne(math.Floor(float64(tw) / origRatio))
		}
		return atLeastOne(math.Floor(float64(th) * origRatio)), th

	case req.Width != nil:
		tw := *req.Width
		if !req.KeepAspect() {
			return tw, origH
		}
		return tw, max(1, int(int64(origH)*int64(tw)/int64(origW)))

	case req.Height != nil:
		th := *req.Height
		if !req.KeepAspect() {
			return origW, th
		}
		return max(1, int(int64(origW)*int64(th)/int64(origH))), th
	}

	return origW, origH
}

// Recommend caps the longest side of origW x origH at maxDim, keeping the
// aspect ratio. Landscape images bind on width, everything else on height.
// It returns nil when the image already fits or maxDim is not positive.
func Recommend(origW, origH, maxDim int) *types.ResizeRequest {
	if maxDim <= 0 || origW <= 0 || origH <= 0 {
		return nil
	}
	if origW > origH {
		if origW <= maxDim {
			return nil
		}
		return types.NewResize(maxDim, 0, true)
	}
	if origH <= maxDim {
		return nil
	}
	return types.NewResize(0, maxDim, true)
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}

// Apply resamples img to w x h with Lanczos, or returns it unchanged when
// the size already matches.
func Apply(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
