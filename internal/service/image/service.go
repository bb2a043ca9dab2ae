package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catppuccinifier/internal/job"
	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
	"github.com/aliskhannn/catppuccinifier/internal/processor"
	"github.com/aliskhannn/catppuccinifier/internal/processor/compose"
)

// pipeline defines the frame pipeline operations used by the service.
type pipeline interface {
	Process(ctx context.Context, task processor.Task, progress processor.ProgressFunc) (model.Output, error)
	Still(ctx context.Context, src model.Source) (*image.NRGBA, error)
}

// fileStorage defines the interface for persisting encoded outputs.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader, contentType string) (string, error)
}

// Service expands a job's request into single-image pipeline runs and
// assembles the job result. It is the runner the scheduler executes.
type Service struct {
	pipeline    pipeline
	fileStorage fileStorage
}

// NewService creates a new Service. fs may be nil, in which case outputs
// are kept in memory only.
func NewService(p pipeline, fs fileStorage) *Service {
	return &Service{pipeline: p, fileStorage: fs}
}

// Run executes the job's request. It returns an error wrapping
// model.ErrCancelled once ctx is done.
func (s *Service) Run(ctx context.Context, j *job.Job) (*model.Result, error) {
	req := j.Request

	variant, err := model.ParseVariant(string(req.Variant))
	if err != nil {
		return nil, err
	}

	var res *model.Result
	switch variant {
	case model.VariantHex:
		return matchHex(req.Flavor, req.Hex)
	case model.VariantStats:
		return s.stats(ctx, j)
	}

	opts, err := palette.Resolve(req.Flavor, req.Algorithm, req.Quality, req.Format, req.Effect)
	if err != nil {
		return nil, err
	}

	switch variant {
	case model.VariantBatch:
		res, err = s.batch(ctx, j, opts)
	case model.VariantAll:
		res, err = s.allFlavors(ctx, j, opts)
	case model.VariantCompare:
		res, err = s.compare(ctx, j, opts)
	default:
		res, err = s.single(ctx, j, opts)
	}
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, j, res.Outputs); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Service) single(ctx context.Context, j *job.Job, opts palette.Options) (*model.Result, error) {
	task := processor.Task{Source: j.Request.Sources[0], Options: opts}

	out, err := s.pipeline.Process(ctx, task, j.SetProgress)
	if err != nil {
		return nil, err
	}

	return &model.Result{Outputs: []model.Output{out}}, nil
}

// batch processes every source. Failed items are counted; the job fails
// only when nothing succeeded or it was cancelled.
func (s *Service) batch(ctx context.Context, j *job.Job, opts palette.Options) (*model.Result, error) {
	sources := j.Request.Sources
	res := &model.Result{}

	var lastErr error
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: batch stopped after %d of %d images: %w", model.ErrCancelled, i, len(sources), err)
		}

		out, err := s.pipeline.Process(ctx, processor.Task{Source: src, Options: opts}, nil)
		if err != nil {
			if model.KindOf(err) == model.KindCancelled {
				return nil, err
			}

			zlog.Logger.Warn().
				Err(err).
				Str("job_id", j.ID.String()).
				Str("source", src.Name).
				Msg("batch item failed")

			res.Failed++
			lastErr = err
		} else {
			res.Outputs = append(res.Outputs, out)
		}

		j.SetProgress(i+1, len(sources))
	}

	if len(res.Outputs) == 0 {
		return nil, fmt.Errorf("all %d images failed: %w", len(sources), lastErr)
	}

	return res, nil
}

// allFlavors remaps one source with every flavor, light to dark.
func (s *Service) allFlavors(ctx context.Context, j *job.Job, opts palette.Options) (*model.Result, error) {
	flavors := palette.Flavors()
	res := &model.Result{Outputs: make([]model.Output, 0, len(flavors))}

	for i, f := range flavors {
		opts.Flavor = f

		out, err := s.pipeline.Process(ctx, processor.Task{Source: j.Request.Sources[0], Options: opts}, nil)
		if err != nil {
			return nil, fmt.Errorf("flavor %s: %w", f, err)
		}

		res.Outputs = append(res.Outputs, out)
		j.SetProgress(i+1, len(flavors))
	}

	return res, nil
}

// compare renders the original next to its remapped version as one PNG.
func (s *Service) compare(ctx context.Context, j *job.Job, opts palette.Options) (*model.Result, error) {
	src := j.Request.Sources[0]

	original, err := s.pipeline.Still(ctx, src)
	if err != nil {
		return nil, err
	}

	opts.Format = palette.PNG
	opts.Effect = palette.NoEffect

	out, err := s.pipeline.Process(ctx, processor.Task{Source: src, Options: opts}, nil)
	if err != nil {
		return nil, err
	}

	processed, err := imaging.Decode(bytes.NewReader(out.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode processed image: %v", model.ErrInternal, err)
	}

	cmp := compose.SideBySide(original, processed)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, cmp, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: comparison: %v", model.ErrEncode, err)
	}

	size := cmp.Bounds().Size()
	out.Name = strings.TrimSuffix(out.Name, filepath.Ext(out.Name)) + "_compare.png"
	out.Width, out.Height = size.X, size.Y
	out.Size = buf.Len()
	out.Data = buf.Bytes()

	j.SetProgress(1, 1)

	return &model.Result{Outputs: []model.Output{out}}, nil
}

func (s *Service) stats(ctx context.Context, j *job.Job) (*model.Result, error) {
	img, err := s.pipeline.Still(ctx, j.Request.Sources[0])
	if err != nil {
		return nil, err
	}

	st := compose.Stats(img)
	j.SetProgress(1, 1)

	return &model.Result{Stats: &st}, nil
}

// persist uploads outputs when a storage is configured and replaces their
// bytes with the object key.
func (s *Service) persist(ctx context.Context, j *job.Job, outputs []model.Output) error {
	if s.fileStorage == nil {
		return nil
	}

	for i := range outputs {
		out := &outputs[i]
		contentType := palette.Format(out.Format).ContentType()

		key, err := s.fileStorage.Save(ctx, j.ID.String(), out.Name, bytes.NewReader(out.Data), contentType)
		if err != nil {
			return fmt.Errorf("%w: save output %s: %v", model.ErrInternal, out.Name, err)
		}

		out.Key = key
		out.Data = nil
	}

	return nil
}
