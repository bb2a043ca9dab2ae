package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

func TestResolveFlavor(t *testing.T) {
	tests := map[string]Flavor{
		"":          Latte,
		"latte":     Latte,
		"MOCHA":     Mocha,
		" Frappe ":  Frappe,
		"frappé":    Frappe,
		"macchiato": Macchiato,
	}
	for in, want := range tests {
		got, err := ResolveFlavor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ResolveFlavor("espresso")
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestResolveAlgorithmAliases(t *testing.T) {
	tests := map[string]Algorithm{
		"":                  ShepardsMethod,
		"shepards":          ShepardsMethod,
		"Shepard":           ShepardsMethod,
		"shepards-method":   ShepardsMethod,
		"gaussian":          GaussianRBF,
		"rbf":               GaussianRBF,
		"linear":            LinearRBF,
		"linear-rbf":        LinearRBF,
		"sampling":          GaussianSampling,
		"gauss":             GaussianSampling,
		"nearest":           NearestNeighbor,
		"NN":                NearestNeighbor,
		"nearest-neighbor":  NearestNeighbor,
		"hald":              Hald,
		"euclide":           Euclide,
		"mean":              Mean,
		"std":               Std,
		"gaussian-sampling": GaussianSampling,
	}
	for in, want := range tests {
		got, err := ResolveAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ResolveAlgorithm("bilinear")
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}

func TestAlgorithmParams(t *testing.T) {
	assert.Equal(t, Params{Power: 2.0, Weighted: true}, ShepardsMethod.Params())
	assert.Equal(t, Params{Power: 2.5, Weighted: true}, GaussianSampling.Params())
	assert.False(t, NearestNeighbor.Params().Weighted)
	assert.False(t, Euclide.Params().Weighted)
	for _, a := range Algorithms() {
		assert.True(t, a.Valid(), a)
	}
}

func TestResolveFormat(t *testing.T) {
	f, ok, err := ResolveFormat("JPG")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, JPEG, f)
	assert.Equal(t, "jpg", f.Extension())
	assert.Equal(t, "image/jpeg", f.ContentType())

	_, ok, err = ResolveFormat("")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ResolveFormat("tiff")
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	assert.True(t, GIF.Animated())
	assert.True(t, WEBP.Animated())
	assert.False(t, PNG.Animated())
}

func TestResolveOptions(t *testing.T) {
	opts, err := Resolve("", "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, Options{Flavor: Latte, Algorithm: ShepardsMethod, Bits: DefaultBits, Effect: NoEffect}, opts)

	opts, err = Resolve("mocha", "", "fast", "gif", "fade")
	require.NoError(t, err)
	assert.Equal(t, NearestNeighbor, opts.Algorithm)
	assert.Equal(t, 5, opts.Bits)
	assert.Equal(t, Fast, opts.Quality)
	assert.Equal(t, GIF, opts.Format)
	assert.Equal(t, Fade, opts.Effect)

	opts, err = Resolve("mocha", "hald", "high", "", "")
	require.NoError(t, err)
	assert.Equal(t, Hald, opts.Algorithm)
	assert.Equal(t, 7, opts.Bits)

	for _, bad := range [][5]string{
		{"x", "", "", "", ""},
		{"", "x", "", "", ""},
		{"", "", "x", "", ""},
		{"", "", "", "x", ""},
		{"", "", "", "", "x"},
	} {
		_, err := Resolve(bad[0], bad[1], bad[2], bad[3], bad[4])
		assert.ErrorIs(t, err, model.ErrInvalidParameter, bad)
	}
}

func TestPalettes(t *testing.T) {
	for _, f := range Flavors() {
		p := f.Palette()
		require.NotNil(t, p, f)
		assert.Len(t, p.Colors, 26, f)
		assert.Equal(t, "rosewater", p.Colors[0].Name)
		assert.Equal(t, "crust", p.Colors[25].Name)
		assert.NotEmpty(t, f.Label())
	}

	base := Mocha.Palette().Colors[23]
	assert.Equal(t, "base", base.Name)
	assert.Equal(t, color.NRGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff}, base.Color)
}

func TestNearest(t *testing.T) {
	p := Mocha.Palette()
	for _, c := range p.Colors {
		assert.Equal(t, c.Name, p.Nearest(c.Color).Name)
	}
	assert.Equal(t, "crust", p.Nearest(color.Black).Name)
}

func TestSuggestFlavor(t *testing.T) {
	assert.Equal(t, Latte, SuggestFlavor(200))
	assert.Equal(t, Frappe, SuggestFlavor(150))
	assert.Equal(t, Macchiato, SuggestFlavor(100))
	assert.Equal(t, Mocha, SuggestFlavor(20))
}

func TestListAll(t *testing.T) {
	c := ListAll()
	assert.Len(t, c.Flavors, 4)
	assert.Len(t, c.Algorithms, 9)
	assert.Len(t, c.Qualities, 3)
	assert.Len(t, c.Formats, 5)
	assert.Len(t, c.Effects, 2)
}
