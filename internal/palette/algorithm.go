package palette

import (
	"fmt"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// Algorithm is a named remapping strategy.
type Algorithm string

const (
	ShepardsMethod   Algorithm = "shepards-method"
	GaussianRBF      Algorithm = "gaussian-rbf"
	LinearRBF        Algorithm = "linear-rbf"
	GaussianSampling Algorithm = "gaussian-sampling"
	NearestNeighbor  Algorithm = "nearest-neighbor"
	Hald             Algorithm = "hald"
	Euclide          Algorithm = "euclide"
	Mean             Algorithm = "mean"
	Std              Algorithm = "std"
)

// DefaultAlgorithm is used when a request names neither an algorithm nor a
// quality preset.
const DefaultAlgorithm = ShepardsMethod

// Params controls how a lookup table is computed for an algorithm.
//
// Weighted algorithms blend every palette color with inverse distance
// weights 1/d^Power (d being the squared Lab distance). The others snap to
// the nearest palette color.
type Params struct {
	Power    float64
	Weighted bool
}

var algorithms = []Algorithm{
	ShepardsMethod, GaussianRBF, LinearRBF, GaussianSampling, NearestNeighbor,
	Hald, Euclide, Mean, Std,
}

var algorithmParams = map[Algorithm]Params{
	ShepardsMethod:   {Power: 2.0, Weighted: true},
	GaussianRBF:      {Power: 1.5, Weighted: true},
	LinearRBF:        {Power: 1.0},
	GaussianSampling: {Power: 2.5, Weighted: true},
	NearestNeighbor:  {Power: 1.0},
	Hald:             {Power: 2.0, Weighted: true},
	Euclide:          {Power: 1.0},
	Mean:             {Power: 1.5, Weighted: true},
	Std:              {Power: 2.0, Weighted: true},
}

var algorithmAlias = map[string]Algorithm{
	"shepards": ShepardsMethod,
	"shepard":  ShepardsMethod,
	"gaussian": GaussianRBF,
	"rbf":      GaussianRBF,
	"linear":   LinearRBF,
	"sampling": GaussianSampling,
	"gauss":    GaussianSampling,
	"nearest":  NearestNeighbor,
	"nn":       NearestNeighbor,
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	_, ok := algorithmParams[a]
	return ok
}

// Params returns the table parameters of a.
func (a Algorithm) Params() Params {
	return algorithmParams[a]
}

// Algorithms returns all algorithms in display order.
func Algorithms() []Algorithm {
	return append([]Algorithm(nil), algorithms...)
}

// ResolveAlgorithm looks up an algorithm by canonical name or alias.
// Empty resolves to DefaultAlgorithm.
func ResolveAlgorithm(name string) (Algorithm, error) {
	key := normalize(name)
	if key == "" {
		return DefaultAlgorithm, nil
	}
	if a, ok := algorithmAlias[key]; ok {
		return a, nil
	}
	if a := Algorithm(key); a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown algorithm %q", model.ErrInvalidParameter, name)
}
