package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"hotel-concierge/internal/knowledge"
	"hotel-concierge/internal/ledger"
	"hotel-concierge/internal/model"
	"hotel-concierge/internal/workflow"
)

const (
	FallbackReply = "I'm having trouble connecting to the hotel network right now. Please try again in a moment."
	NoAnswerReply = "Sorry, I don't have that information right now."

	defaultWorkflowTimeout = 20 * time.Second
)

type ChatOutcome string

const (
	ChatDelivered ChatOutcome = "delivered"
	ChatDegraded  ChatOutcome = "degraded"
)

type ChatService struct {
	ledger    *ledger.Ledger
	topics    *ledger.TopicTally
	knowledge *knowledge.Holder
	responder ChatResponder
	publisher ArchivePublisher
	timeout   time.Duration
	log       *zap.Logger
}

type SendMessageInput struct {
	SessionID string
	Message   string
}

type SendMessageResult struct {
	Reply     string      `json:"reply"`
	Answer    string      `json:"answer"`
	Topic     string      `json:"topic"`
	CanAnswer bool        `json:"canAnswer"`
	SessionID string      `json:"sessionId"`
	Outcome   ChatOutcome `json:"-"`
}

func NewChatService(
	sessions *ledger.Ledger,
	topics *ledger.TopicTally,
	holder *knowledge.Holder,
	responder ChatResponder,
	publisher ArchivePublisher,
	timeout time.Duration,
	log *zap.Logger,
) *ChatService {
	if timeout <= 0 {
		timeout = defaultWorkflowTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatService{
		ledger:    sessions,
		topics:    topics,
		knowledge: holder,
		responder: responder,
		publisher: publisher,
		timeout:   timeout,
		log:       log.Named("chat"),
	}
}

// SendMessage never fails because of the workflow: a broken or slow workflow
// yields the fallback reply with canAnswer=false.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	content := strings.TrimSpace(input.Message)
	if content == "" {
		return nil, ErrMessageEmpty
	}

	rec := s.ledger.RecordMessage(input.SessionID, content)
	s.archive(ctx, rec.SessionID, model.SenderGuest, content, "", nil)

	history := s.ledger.History(rec.SessionID)
	if len(history) > 0 {
		history = history[:len(history)-1]
	}

	outcome := ChatDelivered
	reply, err := s.ask(ctx, workflow.ChatRequest{
		SessionID: rec.SessionID,
		Message:   content,
		HotelInfo: s.knowledge.Text(),
		History:   history,
	})
	if err != nil {
		s.log.Warn("chat workflow failed, using fallback reply",
			zap.String("session_id", rec.SessionID),
			zap.Error(err),
		)
		outcome = ChatDegraded
		reply = &workflow.ChatReply{Answer: FallbackReply, CanAnswer: false}
	}
	if reply.Answer == "" {
		reply.Answer = NoAnswerReply
		reply.CanAnswer = false
	}
	topic := ledger.NormalizeTopic(reply.Topic)

	s.ledger.RecordAssistantReply(rec.SessionID, reply.Answer, reply.CanAnswer)
	s.topics.Increment(topic)
	canAnswer := reply.CanAnswer
	s.archive(ctx, rec.SessionID, model.SenderAssistant, reply.Answer, topic, &canAnswer)

	s.log.Debug("chat message relayed",
		zap.String("session_id", rec.SessionID),
		zap.Bool("new_session", rec.IsNewSession),
		zap.String("topic", topic),
		zap.Bool("can_answer", reply.CanAnswer),
		zap.String("outcome", string(outcome)),
	)

	return &SendMessageResult{
		Reply:     reply.Answer,
		Answer:    reply.Answer,
		Topic:     topic,
		CanAnswer: reply.CanAnswer,
		SessionID: rec.SessionID,
		Outcome:   outcome,
	}, nil
}

// GetHistory returns an empty slice for unknown or missing ids.
func (s *ChatService) GetHistory(sessionID string) []model.Message {
	return s.ledger.History(sessionID)
}

func (s *ChatService) ask(ctx context.Context, req workflow.ChatRequest) (*workflow.ChatReply, error) {
	if s.responder == nil {
		return nil, workflow.ErrNotConfigured
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.responder.Respond(callCtx, req)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, workflow.ErrMalformedReply
	}
	return reply, nil
}

func (s *ChatService) archive(ctx context.Context, sessionID string, sender model.Sender, text, topic string, canAnswer *bool) {
	if s.publisher == nil {
		return
	}
	event := model.NewMessageEvent(model.TranscriptEntry{
		SessionID: sessionID,
		Sender:    string(sender),
		Text:      text,
		Topic:     topic,
		CanAnswer: canAnswer,
		CreatedAt: time.Now().UTC(),
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("archive publish failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
