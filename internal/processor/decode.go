package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"time"

	"github.com/deepteams/webp"
	"github.com/deepteams/webp/animation"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// gifDelayUnit is the GIF frame delay resolution.
const gifDelayUnit = 10 * time.Millisecond

// decoded is a source image split into fully composited frames.
type decoded struct {
	kind   string // as reported by image.DecodeConfig
	frames []model.Frame
	plays  int // times the animation is shown, 0 is forever
}

func decode(data []byte, kind string, limits Limits) (*decoded, error) {
	switch kind {
	case "gif":
		return decodeGIF(data, limits)
	case "webp":
		feat, err := webp.GetFeatures(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: webp features: %v", model.ErrDecode, err)
		}
		if feat.HasAnimation {
			return decodeAnimatedWebP(data, limits)
		}
	}

	return decodeStill(data, kind)
}

func decodeStill(data []byte, kind string) (*decoded, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrDecode, kind, err)
	}

	return &decoded{
		kind:   kind,
		frames: []model.Frame{{Index: 0, Image: imaging.Clone(img)}},
	}, nil
}

// decodeGIF composites every GIF frame onto the logical screen, honoring
// the disposal method of the previous frame.
func decodeGIF(data []byte, limits Limits) (*decoded, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: gif: %v", model.ErrDecode, err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("%w: gif has no frames", model.ErrDecode)
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	// Frames are cheap while paletted; every composited frame costs a full
	// canvas, so the totals are checked before any of them is allocated.
	if err := checkFrames(len(g.Image), bounds.Dx(), bounds.Dy(), limits); err != nil {
		return nil, err
	}

	canvas := image.NewNRGBA(bounds)
	frames := make([]model.Frame, len(g.Image))

	for i, pm := range g.Image {
		var disposal byte
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var saved *image.NRGBA
		if disposal == gif.DisposalPrevious {
			saved = imaging.Clone(canvas)
		}

		draw.Draw(canvas, pm.Bounds(), pm, pm.Bounds().Min, draw.Over)

		var delay time.Duration
		if i < len(g.Delay) {
			delay = time.Duration(g.Delay[i]) * gifDelayUnit
		}
		frames[i] = model.Frame{Index: i, Image: imaging.Clone(canvas), Delay: delay}

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, pm.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}

	return &decoded{kind: "gif", frames: frames, plays: gifPlays(g.LoopCount)}, nil
}

func decodeAnimatedWebP(data []byte, limits Limits) (*decoded, error) {
	anim, err := animation.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: webp animation: %v", model.ErrDecode, err)
	}
	if err := checkFrames(len(anim.Frames), anim.CanvasWidth, anim.CanvasHeight, limits); err != nil {
		return nil, err
	}
	if err := anim.DecodeFrames(); err != nil {
		return nil, fmt.Errorf("%w: webp frames: %v", model.ErrDecode, err)
	}

	dec := animation.NewAnimDecoder(anim)
	frames := make([]model.Frame, 0, len(anim.Frames))
	for dec.HasNext() {
		img, delay, err := dec.NextFrame()
		if err != nil {
			return nil, fmt.Errorf("%w: webp frame %d: %v", model.ErrDecode, len(frames), err)
		}
		frames = append(frames, model.Frame{Index: len(frames), Image: img, Delay: delay})
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: webp has no frames", model.ErrDecode)
	}

	return &decoded{kind: "webp", frames: frames, plays: anim.LoopCount}, nil
}

// checkFrames bounds the frame count and the decoded size of an animation
// of n frames on a w x h canvas.
func checkFrames(n, w, h int, limits Limits) error {
	if limits.MaxFrames > 0 && n > limits.MaxFrames {
		return fmt.Errorf("%w: animation has %d frames, maximum is %d", model.ErrLimitExceeded, n, limits.MaxFrames)
	}
	if limits.MaxPixels > 0 {
		if total := int64(n) * int64(w) * int64(h); total > limits.MaxPixels {
			return fmt.Errorf("%w: animation decodes to %d pixels (%d frames of %dx%d), maximum is %d",
				model.ErrLimitExceeded, total, n, w, h, limits.MaxPixels)
		}
	}
	return nil
}

// gifPlays converts a GIF loop count (0 forever, -1 once, n for n+1 times)
// into a play count.
func gifPlays(loopCount int) int {
	switch {
	case loopCount == 0:
		return 0
	case loopCount < 0:
		return 1
	default:
		return loopCount + 1
	}
}

func gifLoopCount(plays int) int {
	switch {
	case plays <= 0:
		return 0
	case plays == 1:
		return -1
	default:
		return plays - 1
	}
}
