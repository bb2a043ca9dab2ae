package compose

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSideBySide(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	out := SideBySide(filled(10, 8, red), filled(6, 12, blue))

	require.Equal(t, image.Rect(0, 0, 10*2+Margin, 12), out.Bounds())
	assert.Equal(t, red, out.NRGBAAt(0, 0))
	assert.Equal(t, red, out.NRGBAAt(9, 7))
	assert.Equal(t, Background, out.NRGBAAt(5, 10), "below the shorter left image")
	assert.Equal(t, Background, out.NRGBAAt(10+Margin/2, 0), "margin")
	assert.Equal(t, blue, out.NRGBAAt(10+Margin, 0))
	assert.Equal(t, blue, out.NRGBAAt(10+Margin+5, 11))
	assert.Equal(t, Background, out.NRGBAAt(10+Margin+8, 0), "right of the narrower processed image")
}

func TestStats(t *testing.T) {
	img := filled(10, 10, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	// 30 black pixels, 10 red pixels, 60 white.
	for i := 0; i < 30; i++ {
		img.SetNRGBA(i%10, i/10, color.NRGBA{A: 255})
	}
	for x := 0; x < 10; x++ {
		img.SetNRGBA(x, 9, color.NRGBA{R: 255, A: 255})
	}

	s := Stats(img)

	assert.Equal(t, 10, s.Width)
	assert.Equal(t, 3, s.UniqueColors)
	require.Len(t, s.Dominant, 3)
	assert.Equal(t, "#ffffff", s.Dominant[0].Hex)
	assert.InDelta(t, 60.0, s.Dominant[0].Percent, 1e-9)
	assert.Equal(t, "#000000", s.Dominant[1].Hex)
	assert.Equal(t, "#ff0000", s.Dominant[2].Hex)
	assert.InDelta(t, (255.0+0+85)/3, s.Brightness, 1e-9)
	assert.Equal(t, "macchiato", s.SuggestedFlavor)
}

func TestStatsKeepsTopFive(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 1))
	for x := 0; x < 8; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{R: uint8(x * 30), A: 255})
	}

	s := Stats(img)

	assert.Equal(t, 8, s.UniqueColors)
	require.Len(t, s.Dominant, TopColors)
	// Equal counts fall back to hex order.
	assert.Equal(t, "#000000", s.Dominant[0].Hex)
	assert.Equal(t, "#1e0000", s.Dominant[1].Hex)
}

func TestStatsIgnoresAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
	img.SetNRGBA(2, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 0})
	img.SetNRGBA(3, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 0})

	s := Stats(img)

	assert.Equal(t, 2, s.UniqueColors, "same RGB at any alpha is one color")
	require.Len(t, s.Dominant, 2)
	assert.Equal(t, "#0a141e", s.Dominant[0].Hex)
	assert.InDelta(t, 75.0, s.Dominant[0].Percent, 1e-9)
	assert.Equal(t, "#c8c8c8", s.Dominant[1].Hex)
	assert.InDelta(t, 25.0, s.Dominant[1].Percent, 1e-9)
}
