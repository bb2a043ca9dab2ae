package model

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// Frame is one still image of a (possibly animated) sequence.
type Frame struct {
	Index int
	Image *image.NRGBA
	Delay time.Duration // zero for stills
}

// Output is one encoded result plus the parameters used to produce it.
type Output struct {
	Name      string `json:"name"`
	Format    string `json:"format"`
	Flavor    string `json:"flavor"`
	Algorithm string `json:"algorithm"`
	Quality   string `json:"quality,omitempty"`
	Effect    string `json:"effect,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Frames    int    `json:"frames"`
	Size      int    `json:"size"`
	Key       string `json:"key,omitempty"` // storage object key once persisted

	Data []byte `json:"-"`
}

// ColorShare is one dominant color and its share of the image.
type ColorShare struct {
	Hex     string  `json:"hex"`
	Percent float64 `json:"percent"`
}

// ColorStats describes the colors of an image.
type ColorStats struct {
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	UniqueColors    int          `json:"unique_colors"`
	Dominant        []ColorShare `json:"dominant"`
	Brightness      float64      `json:"brightness"`
	SuggestedFlavor string       `json:"suggested_flavor"`
}

// ColorMatch is the nearest palette color for a requested hex color.
type ColorMatch struct {
	Input  string `json:"input"`
	Flavor string `json:"flavor"`
	Name   string `json:"name"`
	Hex    string `json:"hex"`
}

// Result is the success payload of a job.
type Result struct {
	Outputs []Output    `json:"outputs,omitempty"`
	Failed  int         `json:"failed,omitempty"` // batch items that could not be processed
	Stats   *ColorStats `json:"stats,omitempty"`
	Color   *ColorMatch `json:"color,omitempty"`
}

// Progress reports how many units of work a job has finished.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Event is published to the boundary when a job reaches a terminal state.
type Event struct {
	JobID       uuid.UUID     `json:"job_id"`
	SubmitterID string        `json:"submitter_id"`
	State       string        `json:"state"`
	Result      *Result       `json:"result,omitempty"`
	ErrorKind   ErrorKind     `json:"error_kind,omitempty"`
	Message     string        `json:"message,omitempty"`
	Duration    time.Duration `json:"duration"`
	FinishedAt  time.Time     `json:"finished_at"`
}
