// Package compose builds derived images and color reports from decoded
// frames: side-by-side comparisons and dominant color statistics.
package compose

import (
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
)

// Margin is the gap between the two halves of a comparison.
const Margin = 20

// Background fills the comparison canvas around both images.
var Background = color.NRGBA{R: 240, G: 240, B: 240, A: 255}

// TopColors is how many dominant colors Stats reports.
const TopColors = 5

// SideBySide places original on the left and processed on the right,
// each in a cell as large as the bigger of the two.
func SideBySide(original, processed image.Image) *image.NRGBA {
	ob, pb := original.Bounds(), processed.Bounds()
	cellW := max(ob.Dx(), pb.Dx())
	cellH := max(ob.Dy(), pb.Dy())

	dc := gg.NewContext(cellW*2+Margin, cellH)
	dc.SetColor(Background)
	dc.Clear()
	dc.DrawImage(original, 0, 0)
	dc.DrawImage(processed, cellW+Margin, 0)

	return imaging.Clone(dc.Image())
}

// Stats counts the RGB colors of every pixel in img, ignoring alpha, and
// reports the most frequent ones. Brightness is the mean channel value of
// the dominant colors and drives the suggested flavor.
func Stats(img *image.NRGBA) model.ColorStats {
	b := img.Bounds()
	counts := make(map[[3]uint8]int)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+3]
			counts[[3]uint8{p[0], p[1], p[2]}]++
		}
	}

	type entry struct {
		rgb   [3]uint8
		count int
	}
	entries := make([]entry, 0, len(counts))
	for rgb, n := range counts {
		entries = append(entries, entry{rgb, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return hexOf(entries[i].rgb) < hexOf(entries[j].rgb)
	})
	if len(entries) > TopColors {
		entries = entries[:TopColors]
	}

	total := b.Dx() * b.Dy()
	stats := model.ColorStats{
		Width:        b.Dx(),
		Height:       b.Dy(),
		UniqueColors: len(counts),
		Dominant:     make([]model.ColorShare, 0, len(entries)),
	}

	var brightness float64
	for _, e := range entries {
		stats.Dominant = append(stats.Dominant, model.ColorShare{
			Hex:     hexOf(e.rgb),
			Percent: float64(e.count) / float64(total) * 100,
		})
		brightness += (float64(e.rgb[0]) + float64(e.rgb[1]) + float64(e.rgb[2])) / 3
	}
	if len(entries) > 0 {
		brightness /= float64(len(entries))
	}

	stats.Brightness = brightness
	stats.SuggestedFlavor = string(palette.SuggestFlavor(brightness))

	return stats
}

func hexOf(rgb [3]uint8) string {
	c := colorful.Color{R: float64(rgb[0]) / 255, G: float64(rgb[1]) / 255, B: float64(rgb[2]) / 255}
	return c.Hex()
}
