package image

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
)

// ParseHex parses a 3 or 6 digit hex color with an optional leading '#'.
func ParseHex(s string) (colorful.Color, error) {
	digits := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(digits) != 3 && len(digits) != 6 {
		return colorful.Color{}, fmt.Errorf("%w: %q is not a 3 or 6 digit hex color", model.ErrInvalidParameter, s)
	}

	c, err := colorful.Hex("#" + strings.ToLower(digits))
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w: %q is not a hex color", model.ErrInvalidParameter, s)
	}

	return c, nil
}

// matchHex finds the palette color nearest to the requested one.
func matchHex(flavor, hex string) (*model.Result, error) {
	f, err := palette.ResolveFlavor(flavor)
	if err != nil {
		return nil, err
	}

	c, err := ParseHex(hex)
	if err != nil {
		return nil, err
	}

	nc := f.Palette().Nearest(c)

	return &model.Result{Color: &model.ColorMatch{
		Input:  c.Hex(),
		Flavor: string(f),
		Name:   nc.Name,
		Hex:    nc.Hex,
	}}, nil
}
