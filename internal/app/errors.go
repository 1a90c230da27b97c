package app

import (
	"context"
	"errors"

	"hotel-concierge/internal/model"
	"hotel-concierge/internal/workflow"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrMissingContact   = errors.New("name and email are required")
	ErrKnowledgeExtract = errors.New("extract knowledge text failed")
)

// ExtractError carries the extractor failure so operators can see details.
type ExtractError struct {
	Err error
}

func (e *ExtractError) Error() string {
	return ErrKnowledgeExtract.Error() + ": " + e.Err.Error()
}

func (e *ExtractError) Unwrap() error { return e.Err }

func (e *ExtractError) Is(target error) bool { return target == ErrKnowledgeExtract }

type ChatResponder interface {
	Respond(ctx context.Context, req workflow.ChatRequest) (*workflow.ChatReply, error)
}

type EscalationForwarder interface {
	Forward(ctx context.Context, req workflow.EscalationRequest) error
}

type ArchivePublisher interface {
	Publish(ctx context.Context, event model.ArchiveEvent) error
}

// EscalationGuard reports true the first time a key is seen inside its window.
// Release forgets a key so a hand-off that never reached staff can be retried.
type EscalationGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type TextExtractor interface {
	Extract(data []byte) (string, error)
}
