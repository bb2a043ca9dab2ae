// Package palette is the static registry of flavors, algorithms, quality
// presets, export formats and effects. Everything here is built once at
// package init and only read afterwards.
package palette

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// Flavor is one of the four palette variants.
type Flavor string

const (
	Latte     Flavor = "latte"
	Frappe    Flavor = "frappe"
	Macchiato Flavor = "macchiato"
	Mocha     Flavor = "mocha"
)

// DefaultFlavor is used when a request names none.
const DefaultFlavor = Latte

// NamedColor is a single palette entry.
type NamedColor struct {
	Name  string
	Hex   string
	Color color.NRGBA
	Lab   [3]float64 // CIE L*a*b*, L in [0, 100]
}

// Palette is the ordered color set of one flavor.
type Palette struct {
	Flavor Flavor
	Colors []NamedColor
}

var colorNames = []string{
	"rosewater", "flamingo", "pink", "mauve", "red", "maroon", "peach", "yellow",
	"green", "teal", "sky", "sapphire", "blue", "lavender", "text", "subtext1",
	"subtext0", "overlay2", "overlay1", "overlay0", "surface2", "surface1",
	"surface0", "base", "mantle", "crust",
}

var flavorHex = map[Flavor][]string{
	Latte: {
		"dc8a78", "dd7878", "ea76cb", "8839ef", "d20f39", "e64553", "fe640b", "df8e1d",
		"40a02b", "179299", "04a5e5", "209fb5", "1e66f5", "7287fd", "4c4f69", "5c5f77",
		"6c6f85", "7c7f93", "8c8fa1", "9ca0b0", "acb0be", "bcc0cc", "ccd0da", "eff1f5",
		"e6e9ef", "dce0e8",
	},
	Frappe: {
		"f2d5cf", "eebebe", "f4b8e4", "ca9ee6", "e78284", "ea999c", "ef9f76", "e5c890",
		"a6d189", "81c8be", "99d1db", "85c1dc", "8caaee", "babbf1", "c6d0f5", "b5bfe2",
		"a5adce", "949cbb", "838ba7", "737994", "626880", "51576d", "414559", "303446",
		"292c3c", "232634",
	},
	Macchiato: {
		"f4dbd6", "f0c6c6", "f5bde6", "c6a0f6", "ed8796", "ee99a0", "f5a97f", "eed49f",
		"a6da95", "8bd5ca", "91d7e3", "7dc4e4", "8aadf4", "b7bdf8", "cad3f5", "b8c0e0",
		"a5adcb", "939ab7", "8087a2", "6e738d", "5b6078", "494d64", "363a4f", "24273a",
		"1e2030", "181926",
	},
	Mocha: {
		"f5e0dc", "f2cdcd", "f5c2e7", "cba6f7", "f38ba8", "eba0ac", "fab387", "f9e2af",
		"a6e3a1", "94e2d5", "89dceb", "74c7ec", "89b4fa", "b4befe", "cdd6f4", "bac2de",
		"a6adc8", "9399b2", "7f849c", "6c7086", "585b70", "45475a", "313244", "1e1e2e",
		"181825", "11111b",
	},
}

var (
	flavors      = []Flavor{Latte, Frappe, Macchiato, Mocha}
	flavorAlias  = map[string]Flavor{"frappé": Frappe}
	flavorLabels = map[Flavor]string{
		Latte:     "Latte",
		Frappe:    "Frappé",
		Macchiato: "Macchiato",
		Mocha:     "Mocha",
	}
	palettes = buildPalettes()
)

func buildPalettes() map[Flavor]*Palette {
	out := make(map[Flavor]*Palette, len(flavorHex))
	for f, hexes := range flavorHex {
		p := &Palette{Flavor: f, Colors: make([]NamedColor, len(hexes))}
		for i, h := range hexes {
			c, err := colorful.Hex("#" + h)
			if err != nil {
				panic(fmt.Sprintf("palette: bad color %s/%s: %v", f, h, err))
			}
			r, g, b := c.RGB255()
			p.Colors[i] = NamedColor{
				Name:  colorNames[i],
				Hex:   "#" + h,
				Color: color.NRGBA{R: r, G: g, B: b, A: 0xff},
				Lab:   LabOf(r, g, b),
			}
		}
		out[f] = p
	}
	return out
}

// LabOf converts an sRGB triplet to CIE L*a*b* with L in [0, 100].
func LabOf(r, g, b uint8) [3]float64 {
	l, a, bb := colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}.Lab()
	return [3]float64{l * 100, a * 100, bb * 100}
}

// Valid reports whether f is a known flavor.
func (f Flavor) Valid() bool {
	_, ok := palettes[f]
	return ok
}

// Label is the display name of the flavor.
func (f Flavor) Label() string {
	return flavorLabels[f]
}

// Palette returns the flavor's palette, or nil for an unknown flavor.
func (f Flavor) Palette() *Palette {
	return palettes[f]
}

// Flavors returns all flavors in light to dark order.
func Flavors() []Flavor {
	return append([]Flavor(nil), flavors...)
}

// ResolveFlavor looks up a flavor by name. Empty resolves to DefaultFlavor.
func ResolveFlavor(name string) (Flavor, error) {
	key := normalize(name)
	if key == "" {
		return DefaultFlavor, nil
	}
	if f, ok := flavorAlias[key]; ok {
		return f, nil
	}
	if f := Flavor(key); f.Valid() {
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown flavor %q", model.ErrInvalidParameter, name)
}

// SuggestFlavor picks a flavor for an image of the given average brightness
// (0-255). Bright images suit the light flavors.
func SuggestFlavor(brightness float64) Flavor {
	switch {
	case brightness > 180:
		return Latte
	case brightness > 120:
		return Frappe
	case brightness > 80:
		return Macchiato
	default:
		return Mocha
	}
}

// Nearest returns the palette entry closest to c in Lab space.
func (p *Palette) Nearest(c color.Color) NamedColor {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	lab := LabOf(n.R, n.G, n.B)

	best, bestDist := 0, -1.0
	for i, pc := range p.Colors {
		d := DistanceSq(lab, pc.Lab)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return p.Colors[best]
}

// DistanceSq is the squared Euclidean distance between two Lab colors.
func DistanceSq(a, b [3]float64) float64 {
	dl, da, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dl*dl + da*da + db*db
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
