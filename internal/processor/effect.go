package processor

import (
	"image"
	"time"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/catppuccinifier/internal/model"
)

const (
	fadeSteps = 10
	fadeDelay = 100 * time.Millisecond
	fadeHold  = time.Second
)

// fade generates a crossfade from the original image to its remapped
// version. The first and last frames are held longer.
func fade(original, remapped *image.NRGBA) []model.Frame {
	frames := make([]model.Frame, 0, fadeSteps+1)
	for i := 0; i <= fadeSteps; i++ {
		delay := fadeDelay
		if i == 0 || i == fadeSteps {
			delay = fadeHold
		}

		img := imaging.Overlay(original, remapped, image.Point{}, float64(i)/fadeSteps)
		frames = append(frames, model.Frame{Index: i, Image: img, Delay: delay})
	}
	return frames
}
