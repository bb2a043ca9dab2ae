package image

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catppuccinifier/internal/api/respond"
	"github.com/aliskhannn/catppuccinifier/internal/job"
	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
	"github.com/aliskhannn/catppuccinifier/internal/scheduler"
)

// jobScheduler defines the job operations the handler needs.
type jobScheduler interface {
	Submit(req model.ProcessingRequest) (*job.Job, error)
	Cancel(submitterID string) bool
	Status(submitterID string) (scheduler.Status, bool)
}

// resultRepository defines lookups of finished jobs.
type resultRepository interface {
	Get(id uuid.UUID) (model.Event, error)
	Latest(submitterID string) (model.Event, error)
}

// fileStorage defines the object storage used for uploads and outputs.
type fileStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader, contentType string) (string, error)
	Load(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Handler provides HTTP handlers for job submission, status, cancellation
// and results.
type Handler struct {
	scheduler   jobScheduler
	results     resultRepository
	fileStorage fileStorage
	maxBytes    int64
}

// NewHandler creates a new Handler. fs may be nil, in which case uploads
// are passed inline and outputs are served from memory.
func NewHandler(s jobScheduler, r resultRepository, fs fileStorage, maxImageBytes int64) *Handler {
	return &Handler{scheduler: s, results: r, fileStorage: fs, maxBytes: maxImageBytes}
}

// SubmitResponse is returned when a job is accepted.
type SubmitResponse struct {
	ID       uuid.UUID `json:"id"`
	State    job.State `json:"state"`
	Position int       `json:"position"`
}

// Submit handles a multipart upload: one or more "image" files plus the
// processing options as form fields.
func (h *Handler) Submit(c *ginext.Context) {
	// Parse the multipart form with a 32MB max memory limit.
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		zlog.Logger.Err(err).Msg("failed to parse multipart form")
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("%w: malformed multipart form", model.ErrInvalidParameter))
		return
	}

	submitter := c.PostForm("submitter")
	variant, err := model.ParseVariant(c.PostForm("variant"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, err)
		return
	}

	req := model.ProcessingRequest{
		SubmitterID: submitter,
		Flavor:      c.PostForm("flavor"),
		Algorithm:   c.PostForm("algorithm"),
		Quality:     c.PostForm("quality"),
		Format:      c.PostForm("format"),
		Variant:     variant,
		Effect:      c.PostForm("effect"),
		Hex:         c.PostForm("hex"),
	}

	// Reject unknown option names before touching storage.
	if variant != model.VariantHex {
		if _, err := palette.Resolve(req.Flavor, req.Algorithm, req.Quality, req.Format, req.Effect); err != nil {
			respond.Fail(c, http.StatusBadRequest, err)
			return
		}
	}

	var files []*multipart.FileHeader
	if c.Request.MultipartForm != nil {
		files = c.Request.MultipartForm.File["image"]
	}

	sources, err := h.readSources(c.Request.Context(), submitter, files)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("submitter", submitter).Msg("failed to read uploads")
		respond.Fail(c, respond.Status(err), err)
		return
	}
	req.Sources = sources

	j, err := h.scheduler.Submit(req)
	if err != nil {
		h.discard(sources)
		zlog.Logger.Warn().Err(err).Str("submitter", submitter).Msg("job rejected")
		respond.Fail(c, respond.Status(err), err)
		return
	}

	resp := SubmitResponse{ID: j.ID, State: j.State()}
	if st, ok := h.scheduler.Status(submitter); ok && st.ID == j.ID {
		resp.State = st.State
		resp.Position = st.Position
	}

	respond.Accepted(c, resp)
}

// readSources reads every upload under the size limit. With a storage the
// bytes are uploaded and the source carries the object key.
func (h *Handler) readSources(ctx context.Context, submitter string, files []*multipart.FileHeader) ([]model.Source, error) {
	sources := make([]model.Source, 0, len(files))

	for _, fh := range files {
		if h.maxBytes > 0 && fh.Size > h.maxBytes {
			h.discard(sources)
			return nil, fmt.Errorf("%w: %s is larger than %d bytes", model.ErrLimitExceeded, fh.Filename, h.maxBytes)
		}

		data, err := readUpload(fh, h.maxBytes)
		if err != nil {
			h.discard(sources)
			return nil, err
		}

		src := model.Source{Name: fh.Filename, Data: data}
		if h.fileStorage != nil {
			subdir := "original/" + submitter
			key, err := h.fileStorage.Save(ctx, subdir, uuid.NewString()+"_"+fh.Filename, bytes.NewReader(data), fh.Header.Get("Content-Type"))
			if err != nil {
				h.discard(sources)
				return nil, fmt.Errorf("save upload %s: %w", fh.Filename, err)
			}
			src = model.Source{Name: fh.Filename, Ref: key}
		}

		sources = append(sources, src)
	}

	return sources, nil
}

func readUpload(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	r := io.Reader(f)
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", model.ErrLimitExceeded, fh.Filename, maxBytes)
	}

	return data, nil
}

// discard removes uploads of a request that was not accepted.
func (h *Handler) discard(sources []model.Source) {
	if h.fileStorage == nil {
		return
	}
	for _, src := range sources {
		if src.Ref == "" {
			continue
		}
		if err := h.fileStorage.Delete(context.Background(), src.Ref); err != nil {
			zlog.Logger.Warn().Err(err).Str("key", src.Ref).Msg("failed to delete upload")
		}
	}
}

// Status reports the submitter's active job with its queue position, or the
// most recent finished one.
func (h *Handler) Status(c *ginext.Context) {
	submitter := c.Param("submitter")

	if st, ok := h.scheduler.Status(submitter); ok {
		respond.OK(c, st)
		return
	}

	ev, err := h.results.Latest(submitter)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, err)
		return
	}

	respond.OK(c, ev)
}

// Cancel cancels the submitter's active job.
func (h *Handler) Cancel(c *ginext.Context) {
	submitter := c.Param("submitter")

	if !h.scheduler.Cancel(submitter) {
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("no active job of %s: %w", submitter, model.ErrJobNotFound))
		return
	}

	zlog.Logger.Info().Str("submitter", submitter).Msg("job cancellation requested")

	resp := map[string]interface{}{"submitter": submitter, "cancelled": true}
	if st, ok := h.scheduler.Status(submitter); ok {
		resp["state"] = st.State
	}
	respond.Accepted(c, resp)
}

// Result returns the completion event of a finished job.
func (h *Handler) Result(c *ginext.Context) {
	ev, ok := h.event(c)
	if !ok {
		return
	}
	respond.OK(c, ev)
}

// Output serves the bytes of one output of a finished job.
func (h *Handler) Output(c *ginext.Context) {
	ev, ok := h.event(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || ev.Result == nil || index < 0 || index >= len(ev.Result.Outputs) {
		respond.Fail(c, http.StatusNotFound, fmt.Errorf("output %q: %w", c.Param("index"), model.ErrJobNotFound))
		return
	}
	out := ev.Result.Outputs[index]
	contentType := palette.Format(out.Format).ContentType()

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", out.Name))

	if out.Key == "" || h.fileStorage == nil {
		respond.Image(c, http.StatusOK, contentType, int64(len(out.Data)), bytes.NewReader(out.Data))
		return
	}

	reader, err := h.fileStorage.Load(c.Request.Context(), out.Key)
	if err != nil {
		zlog.Logger.Err(err).Str("key", out.Key).Msg("failed to load output")
		respond.Fail(c, http.StatusInternalServerError, err)
		return
	}
	defer reader.Close()

	respond.Image(c, http.StatusOK, contentType, int64(out.Size), reader)
}

func (h *Handler) event(c *ginext.Context) (model.Event, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, fmt.Errorf("%w: invalid id", model.ErrInvalidParameter))
		return model.Event{}, false
	}

	ev, err := h.results.Get(id)
	if err != nil {
		respond.Fail(c, http.StatusNotFound, err)
		return model.Event{}, false
	}

	return ev, true
}

// Options lists every flavor, algorithm, quality, format and effect.
func (h *Handler) Options(c *ginext.Context) {
	respond.OK(c, palette.ListAll())
}
