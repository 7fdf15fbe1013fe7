package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrRetrainingFailed wraps a failed retraining request. Retraining has no
// session or registry side effects either way.
var ErrRetrainingFailed = errors.New("retraining failed")

// RetrainCaller is the backend call that starts a retraining cycle.
type RetrainCaller interface {
	Retrain(ctx context.Context) (string, error)
}

// Retrainer requests retraining cycles. Confirmation is the caller's job:
// the request is assumed costly, so the UI prompts before invoking this.
type Retrainer struct {
	backend RetrainCaller
}

// NewRetrainer wires a retrainer to the backend.
func NewRetrainer(backend RetrainCaller) *Retrainer {
	return &Retrainer{backend: backend}
}

// Retrain sends the request and returns the backend's message verbatim.
func (r *Retrainer) Retrain(ctx context.Context) (string, error) {
	msg, err := r.backend.Retrain(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRetrainingFailed, err)
	}
	return msg, nil
}
