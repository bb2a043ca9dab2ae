package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
	"github.com/aliskhannn/catppuccinifier/internal/remap"
)

// fileStorage loads source images referenced by key instead of inline bytes.
type fileStorage interface {
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// engine is the part of the remap engine the pipeline needs.
type engine interface {
	LUT(ctx context.Context, key remap.Key) (*remap.LUT, error)
	ApplyImage(lut *remap.LUT, src *image.NRGBA) *image.NRGBA
}

// Limits bounds what the pipeline accepts.
type Limits struct {
	MaxBytes     int64
	MaxDimension int
	MaxFrames    int
	MaxPixels    int64 // width x height summed over all decoded frames
}

// Task is one elementary pipeline run: one source image and fully resolved
// options.
type Task struct {
	Source  model.Source
	Options palette.Options
}

// ProgressFunc is called after each frame is remapped.
type ProgressFunc func(done, total int)

// Processor decodes a source into frames, remaps every frame and encodes
// the result.
type Processor struct {
	engine      engine
	fileStorage fileStorage
	limits      Limits
}

// New creates a new Processor. fs may be nil when every source is inline.
func New(e engine, fs fileStorage, limits Limits) *Processor {
	return &Processor{engine: e, fileStorage: fs, limits: limits}
}

// Limits returns the configured limits.
func (p *Processor) Limits() Limits {
	return p.limits
}

// Process runs the pipeline for one task.
//
// The context is checked before every frame. Once it is done the run stops
// with model.ErrCancelled and no partial output is returned; the frame being
// remapped when cancellation arrives is finished first.
func (p *Processor) Process(ctx context.Context, task Task, progress ProgressFunc) (model.Output, error) {
	opts := task.Options
	key := remap.Key{Flavor: opts.Flavor, Algorithm: opts.Algorithm, Bits: opts.Bits}

	if err := validate(key, opts); err != nil {
		return model.Output{}, err
	}

	if err := ctx.Err(); err != nil {
		return model.Output{}, fmt.Errorf("%w: before start: %w", model.ErrCancelled, err)
	}

	data, err := p.source(ctx, task.Source)
	if err != nil {
		return model.Output{}, err
	}

	// Header first, so oversized images are rejected before any pixel
	// buffer is allocated.
	cfg, kind, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.Output{}, fmt.Errorf("%w: read header: %v", model.ErrDecode, err)
	}
	if err := p.checkDimensions(cfg.Width, cfg.Height); err != nil {
		return model.Output{}, err
	}

	dec, err := decode(data, kind, p.limits)
	if err != nil {
		return model.Output{}, err
	}

	if opts.Effect == palette.Fade && len(dec.frames) > 1 {
		return model.Output{}, fmt.Errorf("%w: fade effect needs a still image", model.ErrInvalidParameter)
	}

	lut, err := p.engine.LUT(ctx, key)
	if err != nil {
		return model.Output{}, fmt.Errorf("get lut: %w", err)
	}

	total := len(dec.frames)
	frames := make([]model.Frame, 0, total)
	for i, f := range dec.frames {
		if err := ctx.Err(); err != nil {
			return model.Output{}, fmt.Errorf("%w: stopped after %d of %d frames: %w", model.ErrCancelled, i, total, err)
		}

		frames = append(frames, model.Frame{
			Index: f.Index,
			Image: p.engine.ApplyImage(lut, f.Image),
			Delay: f.Delay,
		})

		if progress != nil {
			progress(i+1, total)
		}
	}

	if opts.Effect == palette.Fade {
		frames = fade(dec.frames[0].Image, frames[0].Image)
	}

	format := outputFormat(opts, dec)

	buf := new(bytes.Buffer)
	if err := encode(buf, format, frames, dec.plays); err != nil {
		return model.Output{}, fmt.Errorf("%w: %s: %v", model.ErrEncode, format, err)
	}

	n := len(frames)
	if !format.Animated() {
		n = 1
	}
	size := frames[0].Image.Bounds().Size()

	zlog.Logger.Debug().
		Str("source", task.Source.Name).
		Str("input", kind).
		Str("format", string(format)).
		Int("frames", n).
		Int("bytes", buf.Len()).
		Msg("image processed")

	return model.Output{
		Name:      outputName(task.Source.Name, opts.Flavor, format),
		Format:    string(format),
		Flavor:    string(opts.Flavor),
		Algorithm: string(opts.Algorithm),
		Quality:   string(opts.Quality),
		Effect:    effectName(opts.Effect),
		Width:     size.X,
		Height:    size.Y,
		Frames:    n,
		Size:      buf.Len(),
		Data:      buf.Bytes(),
	}, nil
}

// Still loads src under the same limits as Process and returns its first
// frame without remapping.
func (p *Processor) Still(ctx context.Context, src model.Source) (*image.NRGBA, error) {
	data, err := p.source(ctx, src)
	if err != nil {
		return nil, err
	}

	cfg, kind, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", model.ErrDecode, err)
	}
	if err := p.checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	dec, err := decode(data, kind, p.limits)
	if err != nil {
		return nil, err
	}

	return dec.frames[0].Image, nil
}

// validate re-checks options that the registry already resolved.
func validate(key remap.Key, opts palette.Options) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if opts.Format != "" && !opts.Format.Valid() {
		return fmt.Errorf("%w: unknown format %q", model.ErrInvalidParameter, opts.Format)
	}
	if opts.Effect != "" && !opts.Effect.Valid() {
		return fmt.Errorf("%w: unknown effect %q", model.ErrInvalidParameter, opts.Effect)
	}
	return nil
}

// source returns the raw bytes of src, reading at most MaxBytes+1 bytes
// from storage.
func (p *Processor) source(ctx context.Context, src model.Source) ([]byte, error) {
	data := src.Data
	if len(data) == 0 {
		if src.Ref == "" {
			return nil, fmt.Errorf("%w: empty source", model.ErrInvalidParameter)
		}
		if p.fileStorage == nil {
			return nil, fmt.Errorf("%w: source references are not supported", model.ErrInvalidParameter)
		}

		rc, err := p.fileStorage.Load(ctx, src.Ref)
		if err != nil {
			return nil, fmt.Errorf("failed to load source %s: %w", src.Ref, err)
		}
		defer rc.Close()

		r := io.Reader(rc)
		if p.limits.MaxBytes > 0 {
			r = io.LimitReader(rc, p.limits.MaxBytes+1)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", src.Ref, err)
		}
	}

	if p.limits.MaxBytes > 0 && int64(len(data)) > p.limits.MaxBytes {
		return nil, fmt.Errorf("%w: image is larger than %d bytes", model.ErrLimitExceeded, p.limits.MaxBytes)
	}

	return data, nil
}

func (p *Processor) checkDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", model.ErrDecode, w, h)
	}
	if limit := p.limits.MaxDimension; limit > 0 && (w > limit || h > limit) {
		return fmt.Errorf("%w: image is %dx%d, maximum is %dx%d", model.ErrLimitExceeded, w, h, limit, limit)
	}
	return nil
}

// outputFormat picks the requested format, or one matching the input:
// animations keep their container, a fade becomes a GIF, stills become PNG.
func outputFormat(opts palette.Options, dec *decoded) palette.Format {
	switch {
	case opts.Format != "":
		return opts.Format
	case opts.Effect == palette.Fade:
		return palette.GIF
	case len(dec.frames) > 1 && dec.kind == "webp":
		return palette.WEBP
	case len(dec.frames) > 1:
		return palette.GIF
	default:
		return palette.PNG
	}
}

func outputName(source string, flavor palette.Flavor, format palette.Format) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return fmt.Sprintf("%s_%s.%s", base, flavor, format.Extension())
}

func effectName(e palette.Effect) string {
	if e == palette.NoEffect {
		return ""
	}
	return string(e)
}
