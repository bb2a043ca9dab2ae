package model

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy shared by the pipeline, the scheduler and the boundaries.
// Callers wrap these with fmt.Errorf("...: %w", err) and match with errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrLimitExceeded    = errors.New("limit exceeded")
	ErrDecode           = errors.New("decode error")
	ErrEncode           = errors.New("encode error")
	ErrAlreadyRunning   = errors.New("job already running")
	ErrCancelled        = errors.New("job cancelled")
	ErrInternal         = errors.New("internal failure")

	ErrQueueFull   = fmt.Errorf("queue is full: %w", ErrLimitExceeded)
	ErrJobNotFound = errors.New("job not found")
)

// ErrorKind is the user-facing classification of an error.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindInvalidParameter ErrorKind = "invalid_parameter"
	KindLimitExceeded    ErrorKind = "limit_exceeded"
	KindDecode           ErrorKind = "decode_error"
	KindEncode           ErrorKind = "encode_error"
	KindAlreadyRunning   ErrorKind = "already_running"
	KindCancelled        ErrorKind = "cancelled"
	KindNotFound         ErrorKind = "not_found"
	KindInternal         ErrorKind = "internal"
)

// KindOf classifies err. Anything outside the taxonomy is an internal failure.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrInvalidParameter):
		return KindInvalidParameter
	case errors.Is(err, ErrLimitExceeded):
		return KindLimitExceeded
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrEncode):
		return KindEncode
	case errors.Is(err, ErrAlreadyRunning):
		return KindAlreadyRunning
	case errors.Is(err, ErrJobNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}

const queueFullMessage = "Too many images are waiting to be processed, try again later"

var userMessages = map[ErrorKind]string{
	KindInvalidParameter: "Unknown option, check the flavor, algorithm, format or effect name",
	KindLimitExceeded:    "The image is too large to process",
	KindDecode:           "The image could not be read",
	KindEncode:           "The result could not be encoded",
	KindAlreadyRunning:   "You already have an image being processed, wait for it or cancel it first",
	KindCancelled:        "Processing was cancelled",
	KindNotFound:         "No job found",
	KindInternal:         "Something went wrong while processing the image",
}

// UserMessage returns a human-readable message for err.
//
// Recoverable kinds carry the error detail so the user can correct the input.
// Internal failures are opaque.
func UserMessage(err error) string {
	// Shares the LimitExceeded kind but not its message.
	if errors.Is(err, ErrQueueFull) {
		return queueFullMessage
	}

	kind := KindOf(err)
	msg, ok := userMessages[kind]
	if !ok {
		return ""
	}

	switch kind {
	case KindInvalidParameter, KindLimitExceeded, KindDecode, KindEncode:
		return fmt.Sprintf("%s (%v)", msg, err)
	default:
		return msg
	}
}
