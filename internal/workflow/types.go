package workflow

import (
	"encoding/json"

	"hotel-concierge/internal/model"
)

// ChatRequest is the body posted to the chat workflow.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	HotelInfo string `json:"hotelInfo"`

	// History is only used by responders that build their own prompt.
	History []model.Message `json:"-"`
}

type ChatReply struct {
	Answer    string
	Topic     string
	CanAnswer bool
}

// EscalationRequest is forwarded to the escalation workflow unchanged.
type EscalationRequest struct {
	SessionID  string          `json:"sessionId"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Question   string          `json:"question"`
	Transcript json.RawMessage `json:"transcript"`
}
