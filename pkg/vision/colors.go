package vision

import (
	"fmt"

	"github.com/menta2k/pixuli/pkg/types"
)

// Hex formats an RGB triple as #RRGGBB.
func Hex(rgb [3]uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", rgb[0], rgb[1], rgb[2])
}

// Saturation returns (max-min)/max over normalized channels.
func Saturation(rgb [3]uint8) float64 {
	hi := max(rgb[0], rgb[1], rgb[2])
	lo := min(rgb[0], rgb[1], rgb[2])
	if hi == 0 {
		return 0
	}
	return float64(hi-lo) / float64(hi)
}

// Brightness returns perceived luma in [0,1].
func Brightness(rgb [3]uint8) float64 {
	return (0.299*float64(rgb[0]) + 0.587*float64(rgb[1]) + 0.114*float64(rgb[2])) / 255.0
}

// ColorName gives a human readable name for an RGB triple.
func ColorName(rgb [3]uint8) string {
	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])

	if Saturation(rgb) < 0.2 {
		value := float64(max(r, g, b)) / 255.0
		switch {
		case value > 0.9:
			return "white"
		case value > 0.7:
			return "light gray"
		case value > 0.3:
			return "gray"
		case value > 0.1:
			return "dark gray"
		default:
			return "black"
		}
	}

	switch {
	case r > g+30 && r > b+30:
		switch {
		case r > 200 && g < 100 && b < 100:
			return "bright red"
		case r > 150 && g > 50 && g < 120 && b < 80:
			return "orange red"
		case r > 120 && g < 80 && b < 80:
			return "dark red"
		}
		return "red"
	case g > r+30 && g > b+30:
		switch {
		case g > 200 && r < 100 && b < 100:
			return "bright green"
		case r > 100 && g > 150 && b < 80:
			return "yellow green"
		case r < 80 && g > 120 && b < 80:
			return "dark green"
		case r < 100 && g > 150 && b > 100:
			return "teal"
		}
		return "green"
	case b > r+30 && b > g+30:
		switch {
		case b > 200 && r < 100 && g < 100:
			return "bright blue"
		case r < 80 && g > 100 && b > 150:
			return "azure"
		case r > 100 && g < 80 && b > 150:
			return "violet blue"
		case r < 80 && g < 80 && b > 120:
			return "dark blue"
		}
		return "blue"
	case r > 150 && g > 150 && b < 100:
		switch {
		case r > 200 && g > 200 && b < 50:
			return "bright yellow"
		case r > 180 && g > 140 && b < 80:
			return "golden"
		}
		return "yellow"
	case r > 100 && g < 100 && b > 100:
		switch {
		case r > 150 && g < 80 && b > 150:
			return "purple"
		case r > 120 && g < 60 && b > 100:
			return "dark purple"
		}
		return "purple tone"
	case r < 100 && g > 120 && b > 120:
		if r < 50 && g > 180 && b > 180 {
			return "cyan"
		}
		return "cyan tone"
	case r > 150 && g > 80 && g < 150 && b < 100:
		return "orange"
	case r > 80 && r < 160 && g > 50 && g < 120 && b > 20 && b < 80:
		return "brown"
	case r > 180 && g > 120 && g < 180 && b > 120 && b < 180:
		return "pink"
	}
	return "mixed"
}

// ToColorInfo names and formats sampled colors.
func ToColorInfo(samples []types.ColorSample) []types.ColorInfo {
	infos := make([]types.ColorInfo, 0, len(samples))
	for _, s := range samples {
		infos = append(infos, types.ColorInfo{
			Name:       ColorName(s.RGB),
			RGB:        s.RGB,
			Hex:        Hex(s.RGB),
			Count:      s.Count,
			Percentage: s.Percentage,
		})
	}
	return infos
}
