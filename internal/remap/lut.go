package remap

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
)

const (
	minBits = 4
	maxBits = 8

	// exactMatchWeight replaces 1/d^p when an input color sits exactly on a
	// palette color.
	exactMatchWeight = 1e6
)

// Key identifies a lookup table.
type Key struct {
	Flavor    palette.Flavor
	Algorithm palette.Algorithm
	Bits      int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Flavor, k.Algorithm, k.Bits)
}

// Validate reports whether the key can be built.
func (k Key) Validate() error {
	if !k.Flavor.Valid() {
		return fmt.Errorf("%w: unknown flavor %q", model.ErrInvalidParameter, k.Flavor)
	}
	if !k.Algorithm.Valid() {
		return fmt.Errorf("%w: unknown algorithm %q", model.ErrInvalidParameter, k.Algorithm)
	}
	if k.Bits < minBits || k.Bits > maxBits {
		return fmt.Errorf("%w: lut bits %d out of range [%d, %d]", model.ErrInvalidParameter, k.Bits, minBits, maxBits)
	}
	return nil
}

// LUT is a quantized 3-D color table. It is immutable once built and safe
// for concurrent use.
type LUT struct {
	key   Key
	shift uint
	side  int
	table []uint8 // side^3 RGB triplets, red-major
}

// Key returns the key the table was built for.
func (l *LUT) Key() Key { return l.key }

// Apply maps one color through the table.
func (l *LUT) Apply(r, g, b uint8) (uint8, uint8, uint8) {
	i := ((int(r>>l.shift)*l.side+int(g>>l.shift))*l.side + int(b>>l.shift)) * 3
	return l.table[i], l.table[i+1], l.table[i+2]
}

// Build computes the table for key. Each bucket is sampled at its center.
// Red planes are computed in parallel by up to workers goroutines.
func Build(ctx context.Context, key Key, workers int) (*LUT, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	side := 1 << key.Bits
	step := 256 / side
	lut := &LUT{
		key:   key,
		shift: uint(8 - key.Bits),
		side:  side,
		table: make([]uint8, side*side*side*3),
	}

	colors := key.Flavor.Palette().Colors
	params := key.Algorithm.Params()
	plane := side * side * 3

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for ri := 0; ri < side; ri++ {
		ri := ri
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			r := uint8(ri*step + step/2)
			out := lut.table[ri*plane : (ri+1)*plane]
			i := 0
			for gi := 0; gi < side; gi++ {
				gv := uint8(gi*step + step/2)
				for bi := 0; bi < side; bi++ {
					bv := uint8(bi*step + step/2)
					lab := palette.LabOf(r, gv, bv)
					if params.Weighted {
						out[i], out[i+1], out[i+2] = blend(lab, colors, params.Power)
					} else {
						c := nearest(lab, colors)
						out[i], out[i+1], out[i+2] = c.R, c.G, c.B
					}
					i += 3
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build lut %s: %w", key, err)
	}

	return lut, nil
}

func nearest(lab [3]float64, colors []palette.NamedColor) color.NRGBA {
	best, bestDist := 0, math.MaxFloat64
	for i, c := range colors {
		if d := palette.DistanceSq(lab, c.Lab); d < bestDist {
			best, bestDist = i, d
		}
	}
	return colors[best].Color
}

// blend is inverse distance weighting over every palette color.
func blend(lab [3]float64, colors []palette.NamedColor, power float64) (uint8, uint8, uint8) {
	var wr, wg, wb, total float64
	for _, c := range colors {
		w := exactMatchWeight
		if d := palette.DistanceSq(lab, c.Lab); d > 0 {
			w = 1 / math.Pow(d, power)
		}
		wr += float64(c.Color.R) * w
		wg += float64(c.Color.G) * w
		wb += float64(c.Color.B) * w
		total += w
	}
	if total == 0 {
		c := colors[0].Color
		return c.R, c.G, c.B
	}
	return clamp8(wr / total), clamp8(wg / total), clamp8(wb / total)
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
