package model

import (
	"fmt"
	"strings"
)

// Variant is the command variant a request was issued with.
// Every variant expands into one or more single-image pipeline runs.
type Variant string

const (
	VariantSingle  Variant = "single"
	VariantBatch   Variant = "batch"
	VariantAll     Variant = "all"
	VariantCompare Variant = "compare"
	VariantStats   Variant = "stats"
	VariantHex     Variant = "hex"
)

// ParseVariant resolves a variant name. Empty means single.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VariantSingle, nil
	case VariantSingle, VariantBatch, VariantAll, VariantCompare, VariantStats, VariantHex:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown variant %q", ErrInvalidParameter, s)
	}
}

// Source is one input image, either inline bytes or a reference to an
// object in storage.
type Source struct {
	Name string `json:"name"`
	Data []byte `json:"data,omitempty"`
	Ref  string `json:"ref,omitempty"`
}

// ProcessingRequest is what a boundary adapter hands to the scheduler.
// It is passed by value and never modified after construction.
type ProcessingRequest struct {
	SubmitterID string   `json:"submitter_id"`
	Sources     []Source `json:"sources"`
	Flavor      string   `json:"flavor,omitempty"`
	Algorithm   string   `json:"algorithm,omitempty"`
	Quality     string   `json:"quality,omitempty"`
	Format      string   `json:"format,omitempty"`
	Variant     Variant  `json:"variant,omitempty"`
	Effect      string   `json:"effect,omitempty"`
	Hex         string   `json:"hex,omitempty"`
}

// Validate checks the structural part of the request. Option names are
// resolved later against the palette registry.
func (r ProcessingRequest) Validate() error {
	if strings.TrimSpace(r.SubmitterID) == "" {
		return fmt.Errorf("%w: submitter id is required", ErrInvalidParameter)
	}

	v, err := ParseVariant(string(r.Variant))
	if err != nil {
		return err
	}

	switch v {
	case VariantHex:
		if r.Hex == "" {
			return fmt.Errorf("%w: hex color is required", ErrInvalidParameter)
		}
		return nil
	case VariantBatch:
		if len(r.Sources) == 0 {
			return fmt.Errorf("%w: at least one image is required", ErrInvalidParameter)
		}
	default:
		if len(r.Sources) != 1 {
			return fmt.Errorf("%w: exactly one image is required, got %d", ErrInvalidParameter, len(r.Sources))
		}
	}

	for i, s := range r.Sources {
		if len(s.Data) == 0 && s.Ref == "" {
			return fmt.Errorf("%w: image %d has neither data nor reference", ErrInvalidParameter, i)
		}
	}

	return nil
}
