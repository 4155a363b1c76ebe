package vision

import (
	"image"
	"image/color"
	"reflect"
	"testing"
)

func solidImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSampleColorsSolid(t *testing.T) {
	samples := SampleColors(solidImage(100, 80, color.RGBA{10, 200, 30, 255}), DefaultSampleOptions())

	if len(samples) != 1 {
		t.Fatalf("expected exactly one sample, got %d", len(samples))
	}
	if samples[0].RGB != [3]uint8{10, 200, 30} {
		t.Errorf("unexpected color %v", samples[0].RGB)
	}
	if samples[0].Percentage != 1.0 {
		t.Errorf("expected 100%%, got %f", samples[0].Percentage)
	}
}

func TestSampleColorsGridStep(t *testing.T) {
	// 64 wide -> step 2, 10 high -> step 1: 32 columns x 10 rows
	samples := SampleColors(solidImage(64, 10, color.White), DefaultSampleOptions())
	if samples[0].Count != 320 {
		t.Errorf("expected 320 samples, got %d", samples[0].Count)
	}
}

func TestSampleColorsRankingAndTies(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 1))
	// red x2, green x4, blue x2, black x2; blue seen before black
	palette := []color.RGBA{
		{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}, {0, 255, 0, 255}, {0, 0, 0, 255},
		{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}, {0, 255, 0, 255}, {0, 0, 0, 255},
	}
	for x, c := range palette {
		img.Set(x, 0, c)
	}

	samples := SampleColors(img, SampleOptions{GridSize: 32, TopK: 3})
	want := [][3]uint8{{0, 255, 0}, {255, 0, 0}, {0, 0, 255}}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i, s := range samples {
		if s.RGB != want[i] {
			t.Errorf("rank %d: expected %v, got %v", i, want[i], s.RGB)
		}
	}
	if samples[0].Percentage != 0.4 {
		t.Errorf("expected 0.4 for green, got %f", samples[0].Percentage)
	}

	again := SampleColors(img, SampleOptions{GridSize: 32, TopK: 3})
	if !reflect.DeepEqual(samples, again) {
		t.Error("sampling is not deterministic")
	}
}

func TestSampleColorsQuantize16(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{0x12, 0x34, 0x56, 255})
	img.Set(1, 0, color.RGBA{0x1f, 0x3a, 0x5b, 255})

	exact := SampleColors(img, SampleOptions{TopK: 5})
	if len(exact) != 2 {
		t.Errorf("exact mode should keep 2 colors, got %d", len(exact))
	}

	quant := SampleColors(img, SampleOptions{TopK: 5, Quantization: Quantize16})
	if len(quant) != 1 || quant[0].RGB != [3]uint8{0x10, 0x30, 0x50} {
		t.Errorf("quantized mode should merge into #103050, got %v", quant)
	}
}

func TestSampleColorsTopKClamp(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 1))
	for x := 0; x < 8; x++ {
		img.Set(x, 0, color.RGBA{uint8(x * 30), 0, 0, 255})
	}
	if got := len(SampleColors(img, SampleOptions{TopK: 10})); got != 5 {
		t.Errorf("TopK should clamp to 5, got %d", got)
	}
	if got := len(SampleColors(img, SampleOptions{TopK: 1})); got != 3 {
		t.Errorf("TopK should clamp to 3, got %d", got)
	}
}

func TestColorName(t *testing.T) {
	cases := []struct {
		rgb  [3]uint8
		want string
	}{
		{[3]uint8{255, 255, 255}, "white"},
		{[3]uint8{0, 0, 0}, "black"},
		{[3]uint8{128, 128, 128}, "gray"},
		{[3]uint8{230, 20, 20}, "bright red"},
		{[3]uint8{20, 230, 20}, "bright green"},
		{[3]uint8{20, 20, 230}, "bright blue"},
		{[3]uint8{230, 230, 20}, "bright yellow"},
		{[3]uint8{20, 200, 200}, "cyan"},
	}
	for _, c := range cases {
		if got := ColorName(c.rgb); got != c.want {
			t.Errorf("ColorName(%v) = %q, want %q", c.rgb, got, c.want)
		}
	}
}

func TestToColorInfo(t *testing.T) {
	infos := ToColorInfo(SampleColors(solidImage(4, 4, color.RGBA{255, 0, 0, 255}), DefaultSampleOptions()))
	if len(infos) != 1 {
		t.Fatalf("expected 1 color, got %d", len(infos))
	}
	if infos[0].Hex != "#FF0000" || infos[0].Name != "bright red" {
		t.Errorf("unexpected color info %+v", infos[0])
	}
}

func BenchmarkSampleColors(b *testing.B) {
	img := solidImage(1920, 1080, color.RGBA{40, 90, 200, 255})
	opts := DefaultSampleOptions()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SampleColors(img, opts)
	}
}
