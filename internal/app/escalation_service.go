package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"hotel-concierge/internal/ledger"
	"hotel-concierge/internal/model"
	"hotel-concierge/internal/workflow"
)

type EscalationOutcome string

const (
	EscalationDelivered  EscalationOutcome = "delivered"
	EscalationDegraded   EscalationOutcome = "degraded"
	EscalationSuppressed EscalationOutcome = "suppressed"
)

type EscalationService struct {
	ledger    *ledger.Ledger
	forwarder EscalationForwarder
	guard     EscalationGuard
	publisher ArchivePublisher
	timeout   time.Duration
	log       *zap.Logger
}

type EscalateInput struct {
	SessionID  string
	Name       string
	Email      string
	Phone      string
	Question   string
	Transcript json.RawMessage
}

// EscalationResult keeps the guest-facing shape ({ok}) apart from what
// actually happened to the hand-off.
type EscalationResult struct {
	OK      bool              `json:"ok"`
	Outcome EscalationOutcome `json:"-"`
}

func NewEscalationService(
	sessions *ledger.Ledger,
	forwarder EscalationForwarder,
	guard EscalationGuard,
	publisher ArchivePublisher,
	timeout time.Duration,
	log *zap.Logger,
) *EscalationService {
	if timeout <= 0 {
		timeout = defaultWorkflowTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EscalationService{
		ledger:    sessions,
		forwarder: forwarder,
		guard:     guard,
		publisher: publisher,
		timeout:   timeout,
		log:       log.Named("escalation"),
	}
}

func (s *EscalationService) Escalate(ctx context.Context, input EscalateInput) (*EscalationResult, error) {
	input.SessionID = strings.TrimSpace(input.SessionID)
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Question = strings.TrimSpace(input.Question)
	if input.Name == "" || input.Email == "" {
		return nil, ErrMissingContact
	}

	known := s.ledger.MarkNeedsReview(input.SessionID)

	key := dedupeKey(input)
	outcome := EscalationDelivered
	if !s.firstAttempt(ctx, key) {
		outcome = EscalationSuppressed
	} else if err := s.forward(ctx, input); err != nil {
		s.log.Error("escalation forward failed",
			zap.String("session_id", input.SessionID),
			zap.Error(err),
		)
		outcome = EscalationDegraded
		s.release(ctx, key)
	}

	s.log.Info("escalation recorded",
		zap.String("session_id", input.SessionID),
		zap.Bool("known_session", known),
		zap.String("outcome", string(outcome)),
	)
	s.archive(ctx, input, outcome)

	return &EscalationResult{OK: true, Outcome: outcome}, nil
}

func (s *EscalationService) forward(ctx context.Context, input EscalateInput) error {
	if s.forwarder == nil {
		return workflow.ErrNotConfigured
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.forwarder.Forward(callCtx, workflow.EscalationRequest{
		SessionID:  input.SessionID,
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Question:   input.Question,
		Transcript: input.Transcript,
	})
}

// firstAttempt fails open when the guard is unavailable.
func (s *EscalationService) firstAttempt(ctx context.Context, key string) bool {
	if s.guard == nil {
		return true
	}
	first, err := s.guard.Acquire(ctx, key)
	if err != nil {
		s.log.Warn("escalation dedupe check failed", zap.Error(err))
		return true
	}
	return first
}

// release lets a retry of an undelivered escalation through the guard.
func (s *EscalationService) release(ctx context.Context, key string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, key); err != nil {
		s.log.Warn("escalation dedupe release failed", zap.Error(err))
	}
}

func (s *EscalationService) archive(ctx context.Context, input EscalateInput, outcome EscalationOutcome) {
	if s.publisher == nil {
		return
	}
	event := model.NewEscalationEvent(model.EscalationRecord{
		SessionID:  input.SessionID,
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Question:   input.Question,
		Transcript: model.TranscriptText(input.Transcript),
		Outcome:    string(outcome),
		CreatedAt:  time.Now().UTC(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("archive publish failed", zap.String("session_id", input.SessionID), zap.Error(err))
	}
}

func dedupeKey(input EscalateInput) string {
	sum := sha256.Sum256([]byte(input.SessionID + "\x00" + strings.ToLower(input.Email) + "\x00" + input.Question))
	return hex.EncodeToString(sum[:])
}
