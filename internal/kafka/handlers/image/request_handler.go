package image

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catppuccinifier/internal/job"
	"github.com/aliskhannn/catppuccinifier/internal/model"
)

// scheduler defines the interface for admitting processing requests.
type scheduler interface {
	Submit(req model.ProcessingRequest) (*job.Job, error)
}

// RequestHandler handles Kafka messages carrying processing requests.
type RequestHandler struct {
	scheduler scheduler
}

// NewRequestHandler creates a new handler with the given scheduler.
func NewRequestHandler(s scheduler) *RequestHandler {
	return &RequestHandler{scheduler: s}
}

// Handle unmarshals the message into a ProcessingRequest and submits it.
// The message key is used as the submitter when the payload names none.
// The outcome arrives later on the events topic.
func (h *RequestHandler) Handle(_ context.Context, msg kafka.Message) error {
	var req model.ProcessingRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("%w: unmarshal request: %v", model.ErrInvalidParameter, err)
	}

	if req.SubmitterID == "" {
		req.SubmitterID = string(msg.Key)
	}

	j, err := h.scheduler.Submit(req)
	if err != nil {
		return fmt.Errorf("submit request of %s: %w", req.SubmitterID, err)
	}

	zlog.Logger.Info().
		Str("job_id", j.ID.String()).
		Str("submitter", j.SubmitterID).
		Int64("offset", msg.Offset).
		Msg("request accepted from kafka")

	return nil
}
