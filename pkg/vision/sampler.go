// Package vision extracts color statistics from decoded images.
package vision

import (
	"image"
	"image/color"
	"sort"

	"github.com/menta2k/pixuli/pkg/types"
)

// Quantization selects how sampled pixels are bucketed.
type Quantization int

const (
	// Exact keys the histogram by the exact RGB triple.
	Exact Quantization = iota
	// Quantize16 reduces each channel to 16 levels before counting.
	Quantize16
)

// ParseQuantization maps a config string to a Quantization.
func ParseQuantization(s string) Quantization {
	if s == "quantize16" {
		return Quantize16
	}
	return Exact
}

// SampleOptions configures grid sampling
type SampleOptions struct {
	GridSize     int
	TopK         int
	Quantization Quantization
}

// DefaultSampleOptions returns a 32-cell grid keeping the top 5 exact colors.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{GridSize: 32, TopK: 5, Quantization: Exact}
}

func (o SampleOptions) normalized() SampleOptions {
	if o.GridSize <= 0 {
		o.GridSize = 32
	}
	if o.TopK < 3 {
		o.TopK = 3
	}
	if o.TopK > 5 {
		o.TopK = 5
	}
	return o
}

type bucket struct {
	rgb   [3]uint8
	count uint32
}

// SampleColors visits a grid of pixels and returns the most frequent colors.
// Ties keep first-seen order so identical inputs give identical output.
func SampleColors(img image.Image, opts SampleOptions) []types.ColorSample {
	opts = opts.normalized()
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return []types.ColorSample{}
	}

	stepX := max(1, width/opts.GridSize)
	stepY := max(1, height/opts.GridSize)

	index := make(map[[3]uint8]int)
	var buckets []bucket
	var total uint32

	for y := 0; y < height; y += stepY {
		for x := 0; x < width; x += stepX {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			key := [3]uint8{c.R, c.G, c.B}
			if opts.Quantization == Quantize16 {
				key = [3]uint8{c.R & 0xf0, c.G & 0xf0, c.B & 0xf0}
			}

			if i, ok := index[key]; ok {
				buckets[i].count++
			} else {
				index[key] = len(buckets)
				buckets = append(buckets, bucket{rgb: key, count: 1})
			}
			total++
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].count > buckets[j].count
	})

	n := min(opts.TopK, len(buckets))
	samples := make([]types.ColorSample, 0, n)
	for _, bk := range buckets[:n] {
		samples = append(samples, types.ColorSample{
			RGB:        bk.rgb,
			Count:      bk.count,
			Percentage: float64(bk.count) / float64(total),
		})
	}
	return samples
}
