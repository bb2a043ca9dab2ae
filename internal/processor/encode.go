package processor

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"

	"github.com/deepteams/webp"
	"github.com/deepteams/webp/animation"
	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"

	"github.com/aliskhannn/catppuccinifier/internal/model"
	"github.com/aliskhannn/catppuccinifier/internal/palette"
)

const (
	jpegQuality = 95
	webpQuality = 90
)

var errNoFrames = errors.New("no frames to encode")

// encode writes frames in the given format. Still formats take the first
// frame only.
func encode(w io.Writer, format palette.Format, frames []model.Frame, plays int) error {
	if len(frames) == 0 {
		return errNoFrames
	}

	switch format {
	case palette.GIF:
		return encodeGIF(w, frames, plays)
	case palette.WEBP:
		if len(frames) > 1 {
			return encodeAnimatedWebP(w, frames, plays)
		}
		opts := webp.DefaultOptions()
		opts.Quality = webpQuality
		return webp.Encode(w, frames[0].Image, opts)
	case palette.JPEG:
		return imaging.Encode(w, frames[0].Image, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	case palette.BMP:
		return imaging.Encode(w, frames[0].Image, imaging.BMP)
	default:
		return imaging.Encode(w, frames[0].Image, imaging.PNG)
	}
}

// encodeGIF builds one median-cut palette shared by all frames so colors
// stay stable across the animation.
func encodeGIF(w io.Writer, frames []model.Frame, plays int) error {
	imgs := make([]image.Image, len(frames))
	transparent := false
	for i, f := range frames {
		imgs[i] = f.Image
		if !transparent && !f.Image.Opaque() {
			transparent = true
		}
	}

	q := quantize.MedianCutQuantizer{
		Aggregation:    quantize.Mode,
		AddTransparent: transparent,
	}
	pal := q.QuantizeMultiple(make(color.Palette, 0, 256), imgs)

	out := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		Disposal:  make([]byte, len(frames)),
		LoopCount: gifLoopCount(plays),
	}

	for i, f := range frames {
		b := f.Image.Bounds()
		pm := image.NewPaletted(b, pal)
		draw.Draw(pm, b, f.Image, b.Min, draw.Src)

		out.Image[i] = pm
		out.Delay[i] = int(f.Delay / gifDelayUnit)
		out.Disposal[i] = gif.DisposalBackground
	}

	return gif.EncodeAll(w, out)
}

func encodeAnimatedWebP(w io.Writer, frames []model.Frame, plays int) error {
	b := frames[0].Image.Bounds()
	enc := animation.NewEncoder(w, b.Dx(), b.Dy(), &animation.EncodeOptions{
		LoopCount: plays,
		Quality:   webpQuality,
	})

	for _, f := range frames {
		if err := enc.AddFrame(f.Image, f.Delay); err != nil {
			return err
		}
	}

	return enc.Close()
}
