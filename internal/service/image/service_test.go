package image

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/catppuccinifier/internal/job"
	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
	"github.com/aliskhannn/catppuccinifier/internal/processor"
	"github.com/aliskhannn/catppuccinifier/internal/processor/compose"
	"github.com/aliskhannn/catppuccinifier/internal/remap"
)

type savedObject struct {
	data        []byte
	contentType string
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string]savedObject
}

func (m *memStorage) Save(_ context.Context, subdir, filename string, src io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.objects == nil {
		m.objects = make(map[string]savedObject)
	}
	key := subdir + "/" + filename
	m.objects[key] = savedObject{data: data, contentType: contentType}
	return key, nil
}

func newTestService(t *testing.T, fs fileStorage) *Service {
	t.Helper()
	e, err := remap.New(8, 4)
	require.NoError(t, err)
	p := processor.New(e, nil, processor.Limits{MaxBytes: 1 << 20, MaxDimension: 512, MaxFrames: 50})
	return NewService(p, fs)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 0xff})
		}
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func newJob(req model.ProcessingRequest) *job.Job {
	req.SubmitterID = "alice"
	if req.Quality == "" {
		req.Quality = "fast"
	}
	return job.New(req)
}

func TestRunSinglePersistsOutput(t *testing.T) {
	fs := &memStorage{}
	s := newTestService(t, fs)
	j := newJob(model.ProcessingRequest{
		Sources: []model.Source{{Name: "cat.png", Data: pngBytes(t, 16, 16)}},
		Flavor:  "mocha",
	})

	res, err := s.Run(context.Background(), j)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)

	out := res.Outputs[0]
	assert.Equal(t, "cat_mocha.png", out.Name)
	assert.Equal(t, j.ID.String()+"/cat_mocha.png", out.Key)
	assert.Nil(t, out.Data)

	saved := fs.objects[out.Key]
	assert.Equal(t, "image/png", saved.contentType)
	assert.Len(t, saved.data, out.Size)
	assert.Equal(t, model.Progress{Done: 1, Total: 1}, j.Snapshot().Progress)
}

func TestRunBatchCountsFailures(t *testing.T) {
	s := newTestService(t, nil)
	j := newJob(model.ProcessingRequest{
		Variant: model.VariantBatch,
		Sources: []model.Source{
			{Name: "a.png", Data: pngBytes(t, 8, 8)},
			{Name: "broken.png", Data: []byte("not an image")},
			{Name: "b.png", Data: pngBytes(t, 8, 8)},
		},
	})

	res, err := s.Run(context.Background(), j)
	require.NoError(t, err)
	assert.Len(t, res.Outputs, 2)
	assert.Equal(t, 1, res.Failed)
	assert.NotEmpty(t, res.Outputs[0].Data, "kept in memory without storage")
	assert.Equal(t, model.Progress{Done: 3, Total: 3}, j.Snapshot().Progress)
}

func TestRunBatchAllFailed(t *testing.T) {
	s := newTestService(t, nil)
	j := newJob(model.ProcessingRequest{
		Variant: model.VariantBatch,
		Sources: []model.Source{{Name: "x", Data: []byte("x")}, {Name: "y", Data: []byte("y")}},
	})

	_, err := s.Run(context.Background(), j)
	require.Error(t, err)
	assert.Equal(t, model.KindDecode, model.KindOf(err))
}

func TestRunBatchCancelled(t *testing.T) {
	s := newTestService(t, nil)
	j := newJob(model.ProcessingRequest{
		Variant: model.VariantBatch,
		Sources: []model.Source{{Name: "a.png", Data: pngBytes(t, 8, 8)}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, j)
	assert.ErrorIs(t, err, model.ErrCancelled)
}

func TestRunAllFlavors(t *testing.T) {
	s := newTestService(t, nil)
	j := newJob(model.ProcessingRequest{
		Variant: model.VariantAll,
		Sources: []model.Source{{Name: "cat.png", Data: pngBytes(t, 8, 8)}},
	})

	res, err := s.Run(context.Background(), j)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 4)

	for i, f := range palette.Flavors() {
		assert.Equal(t, string(f), res.Outputs[i].Flavor)
	}
}

func TestRunCompare(t *testing.T) {
	s := newTestService(t, nil)
	j := newJob(model.ProcessingRequest{
		Variant: model.VariantCompare,
		Sources: []model.Source{{Name: "cat.jpg", Data: pngBytes(t, 30, 20)}},
		Format:  "jpg",
	})

	res, err := s.Run(context.Background(), j)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 1)

	out := res.Outputs[0]
	assert.Equal(t, "cat_latte_compare.png", out.Name)
	assert.Equal(t, "png", out.Format)
	assert.Equal(t, 30*2+compose.Margin, out.Width)
	assert.Equal(t, 20, out.Height)

	cfg, kind, err := image.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, "png", kind)
	assert.Equal(t, out.Width, cfg.Width)
}

func TestRunStats(t *testing.T) {
	s := newTestService(t, nil)
	j := newJob(model.ProcessingRequest{
		Variant: model.VariantStats,
		Sources: []model.Source{{Name: "cat.png", Data: pngBytes(t, 10, 10)}},
	})

	res, err := s.Run(context.Background(), j)
	require.NoError(t, err)
	require.NotNil(t, res.Stats)
	assert.Empty(t, res.Outputs)
	assert.Equal(t, 10, res.Stats.Width)
	assert.Len(t, res.Stats.Dominant, compose.TopColors)
	assert.NotEmpty(t, res.Stats.SuggestedFlavor)
}

func TestRunHex(t *testing.T) {
	s := newTestService(t, nil)

	tests := []struct {
		name    string
		flavor  string
		hex     string
		want    string
		wantHex string
	}{
		{name: "exact palette color", flavor: "mocha", hex: "#89B4FA", want: "blue", wantHex: "#89b4fa"},
		{name: "without hash", flavor: "latte", hex: "1e66f5", want: "blue", wantHex: "#1e66f5"},
		{name: "short form", flavor: "mocha", hex: "#000", want: "crust", wantHex: "#11111b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newJob(model.ProcessingRequest{Variant: model.VariantHex, Flavor: tt.flavor, Hex: tt.hex})

			res, err := s.Run(context.Background(), j)
			require.NoError(t, err)
			require.NotNil(t, res.Color)
			assert.Equal(t, tt.want, res.Color.Name)
			assert.Equal(t, tt.wantHex, res.Color.Hex)
		})
	}
}

func TestRunHexInvalid(t *testing.T) {
	s := newTestService(t, nil)

	for _, hex := range []string{"#12", "#zzzzzz", "12345"} {
		j := newJob(model.ProcessingRequest{Variant: model.VariantHex, Hex: hex})
		_, err := s.Run(context.Background(), j)
		assert.ErrorIs(t, err, model.ErrInvalidParameter, hex)
	}
}

func TestRunInvalidOptions(t *testing.T) {
	s := newTestService(t, nil)
	j := newJob(model.ProcessingRequest{
		Sources: []model.Source{{Name: "cat.png", Data: pngBytes(t, 8, 8)}},
		Flavor:  "espresso",
	})

	_, err := s.Run(context.Background(), j)
	assert.ErrorIs(t, err, model.ErrInvalidParameter)
}
