package classifier

import "github.com/menta2k/pixuli/pkg/vision"

// Tone describes the dominant color bucket.
type Tone struct {
	Family     string
	Band       string
	Brightness float64
	Tag        string
}

// ToneOf buckets an RGB triple. Low saturation goes to a brightness ladder of
// grays; otherwise a hue family is picked by channel margins and refined by
// a brightness band.
func ToneOf(rgb [3]uint8) Tone {
	br := vision.Brightness(rgb)

	if vision.Saturation(rgb) < 0.2 {
		var family string
		switch {
		case br > 0.85:
			family = "white"
		case br < 0.15:
			family = "black"
		case br > 0.7:
			family = "light-gray"
		case br < 0.4:
			family = "dark-gray"
		default:
			family = "gray"
		}
		return Tone{Family: family, Band: "neutral", Brightness: br, Tag: family}
	}

	r, g, b := int(rgb[0]), int(rgb[1]), int(rgb[2])
	var family string
	switch {
	case r > g+30 && r > b+30:
		family = "red"
	case g > r+30 && g > b+30:
		family = "green"
	case b > r+30 && b > g+30:
		family = "blue"
	case r >= g && r >= b:
		family = "warm"
	case b >= r && b >= g:
		family = "cool"
	default:
		family = "natural"
	}

	var band string
	switch {
	case br > 0.8:
		band = "bright"
	case br < 0.3:
		band = "dark"
	case br > 0.6:
		band = "light"
	default:
		band = "muted"
	}

	return Tone{Family: family, Band: band, Brightness: br, Tag: band + "-" + family}
}
