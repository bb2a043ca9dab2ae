package palette

import (
	"fmt"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// Quality is a preset that picks an algorithm and the lookup table precision.
type Quality string

const (
	Fast   Quality = "fast"
	Normal Quality = "normal"
	High   Quality = "high"
)

// DefaultBits is the lookup table precision per channel when no quality
// preset is given.
const DefaultBits = 6

// Preset is what a quality name expands to.
type Preset struct {
	Quality   Quality
	Algorithm Algorithm
	Bits      int
}

var (
	qualities = []Quality{Fast, Normal, High}
	presets   = map[Quality]Preset{
		Fast:   {Quality: Fast, Algorithm: NearestNeighbor, Bits: 5},
		Normal: {Quality: Normal, Algorithm: ShepardsMethod, Bits: 6},
		High:   {Quality: High, Algorithm: GaussianSampling, Bits: 7},
	}
)

// ResolveQuality looks up a quality preset. ok is false for an empty name.
func ResolveQuality(name string) (p Preset, ok bool, err error) {
	key := normalize(name)
	if key == "" {
		return Preset{}, false, nil
	}
	p, ok = presets[Quality(key)]
	if !ok {
		return Preset{}, false, fmt.Errorf("%w: unknown quality %q", model.ErrInvalidParameter, name)
	}
	return p, true, nil
}

// Format is an export format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WEBP Format = "webp"
	GIF  Format = "gif"
	BMP  Format = "bmp"
)

type formatInfo struct {
	ext         string
	contentType string
	animated    bool
}

var (
	formats     = []Format{PNG, JPEG, WEBP, GIF, BMP}
	formatAlias = map[string]Format{"jpg": JPEG}
	formatInfos = map[Format]formatInfo{
		PNG:  {ext: "png", contentType: "image/png"},
		JPEG: {ext: "jpg", contentType: "image/jpeg"},
		WEBP: {ext: "webp", contentType: "image/webp", animated: true},
		GIF:  {ext: "gif", contentType: "image/gif", animated: true},
		BMP:  {ext: "bmp", contentType: "image/bmp"},
	}
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	_, ok := formatInfos[f]
	return ok
}

// Extension is the file extension without the dot.
func (f Format) Extension() string { return formatInfos[f].ext }

// ContentType is the MIME type of the format.
func (f Format) ContentType() string { return formatInfos[f].contentType }

// Animated reports whether the format can carry more than one frame.
func (f Format) Animated() bool { return formatInfos[f].animated }

// ResolveFormat looks up an export format. ok is false for an empty name,
// meaning the pipeline picks one from the input.
func ResolveFormat(name string) (f Format, ok bool, err error) {
	key := normalize(name)
	if key == "" {
		return "", false, nil
	}
	if f, ok := formatAlias[key]; ok {
		return f, true, nil
	}
	if f := Format(key); f.Valid() {
		return f, true, nil
	}
	return "", false, fmt.Errorf("%w: unknown format %q", model.ErrInvalidParameter, name)
}

// Effect is an optional post-processing animation.
type Effect string

const (
	NoEffect Effect = "none"
	Fade     Effect = "fade"
)

var effects = []Effect{NoEffect, Fade}

// Valid reports whether e is a known effect.
func (e Effect) Valid() bool {
	return e == NoEffect || e == Fade
}

// ResolveEffect looks up an effect. Empty resolves to NoEffect.
func ResolveEffect(name string) (Effect, error) {
	key := normalize(name)
	if key == "" {
		return NoEffect, nil
	}
	if e := Effect(key); e.Valid() {
		return e, nil
	}
	return "", fmt.Errorf("%w: unknown effect %q", model.ErrInvalidParameter, name)
}

// Options is a fully resolved set of processing options.
type Options struct {
	Flavor    Flavor
	Algorithm Algorithm
	Quality   Quality // empty when no preset was given
	Bits      int
	Format    Format // empty means "same kind as the input"
	Effect    Effect
}

// Resolve validates every option name of a request. An explicit algorithm
// wins over the one implied by the quality preset; the preset still sets the
// table precision.
func Resolve(flavor, algorithm, quality, format, effect string) (Options, error) {
	var opts Options
	var err error

	if opts.Flavor, err = ResolveFlavor(flavor); err != nil {
		return Options{}, err
	}

	preset, hasPreset, err := ResolveQuality(quality)
	if err != nil {
		return Options{}, err
	}

	opts.Bits = DefaultBits
	if hasPreset {
		opts.Quality = preset.Quality
		opts.Bits = preset.Bits
	}

	switch {
	case normalize(algorithm) != "":
		if opts.Algorithm, err = ResolveAlgorithm(algorithm); err != nil {
			return Options{}, err
		}
	case hasPreset:
		opts.Algorithm = preset.Algorithm
	default:
		opts.Algorithm = DefaultAlgorithm
	}

	if opts.Format, _, err = ResolveFormat(format); err != nil {
		return Options{}, err
	}

	if opts.Effect, err = ResolveEffect(effect); err != nil {
		return Options{}, err
	}

	return opts, nil
}

// Catalog lists everything a client can choose from.
type Catalog struct {
	Flavors    []Flavor    `json:"flavors"`
	Algorithms []Algorithm `json:"algorithms"`
	Qualities  []Quality   `json:"qualities"`
	Formats    []Format    `json:"formats"`
	Effects    []Effect    `json:"effects"`
}

// ListAll returns the full catalog.
func ListAll() Catalog {
	return Catalog{
		Flavors:    Flavors(),
		Algorithms: Algorithms(),
		Qualities:  append([]Quality(nil), qualities...),
		Formats:    append([]Format(nil), formats...),
		Effects:    append([]Effect(nil), effects...),
	}
}
