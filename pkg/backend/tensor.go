package backend

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/pixuli/pkg/types"
)

// Preprocess resizes img to size x size and lays it out as three [0,1]
// channel planes (R, G, B) in channel-major order.
func Preprocess(img image.Image, size int) []float32 {
	resized := imaging.Resize(img, size, size, imaging.Lanczos)
	plane := size * size
	out := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := resized.PixOffset(x, y)
			p := y*size + x
			out[p] = float32(resized.Pix[i]) / 255
			out[plane+p] = float32(resized.Pix[i+1]) / 255
			out[2*plane+p] = float32(resized.Pix[i+2]) / 255
		}
	}
	return out
}

// Postprocess decodes YOLO-style rows [xc, yc, w, h, conf, class scores...]
// from a [batch, rows, stride] tensor. A row is kept when conf times its best
// class score exceeds threshold and the class has a label. Boxes are
// converted to pixel corners of the original image.
func Postprocess(data []float32, shape []int64, labels []string, origW, origH int, threshold float64) []types.DetectedObject {
	objects := []types.DetectedObject{}
	if len(shape) != 3 || shape[2] <= 5 {
		return objects
	}
	batches, rows, stride := int(shape[0]), int(shape[1]), int(shape[2])
	if len(data) < batches*rows*stride {
		return objects
	}

	for b := 0; b < batches; b++ {
		for r := 0; r < rows; r++ {
			row := data[(b*rows+r)*stride : (b*rows+r+1)*stride]

			best, bestIdx := float32(0), 0
			for c, p := range row[5:] {
				if p > best {
					best, bestIdx = p, c
				}
			}

			final := float64(row[4] * best)
			if final <= threshold || bestIdx >= len(labels) {
				continue
			}

			xc, yc, w, h := float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])
			objects = append(objects, types.DetectedObject{
				Name:       labels[bestIdx],
				Confidence: final,
				BBox: types.BoundingBox{
					X:      (xc - w/2) * float64(origW),
					Y:      (yc - h/2) * float64(origH),
					Width:  w * float64(origW),
					Height: h * float64(origH),
					Pixels: true,
				},
				Category: "object",
				Source:   string(KindONNX),
			})
		}
	}
	return objects
}
