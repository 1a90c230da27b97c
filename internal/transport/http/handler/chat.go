package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hotel-concierge/internal/app"
	"hotel-concierge/internal/transport/http/response"
)

type ChatHandler struct {
	chatService       *app.ChatService
	escalationService *app.EscalationService
}

type SendMessageRequest struct {
	SessionID json.RawMessage `json:"sessionId"`
	Message   string          `json:"message" binding:"required"`
}

type EscalateRequest struct {
	SessionID    string          `json:"sessionId"`
	Name         string          `json:"name" binding:"required"`
	Email        string          `json:"email" binding:"required,email"`
	Phone        string          `json:"phone"`
	Question     string          `json:"question"`
	Transcript   json.RawMessage `json:"transcript"`
	Conversation json.RawMessage `json:"conversation"`
}

func NewChatHandler(chatService *app.ChatService, escalationService *app.EscalationService) *ChatHandler {
	return &ChatHandler{
		chatService:       chatService,
		escalationService: escalationService,
	}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Missing message")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		SessionID: stringOrEmpty(req.SessionID),
		Message:   req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, "Missing message")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "send message failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	response.OK(c, h.chatService.GetHistory(c.Query("sessionId")))
}

func (h *ChatHandler) Escalate(c *gin.Context) {
	var req EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Name and a valid email are required")
		return
	}

	transcript := req.Transcript
	if isAbsent(transcript) {
		transcript = req.Conversation
	}

	result, err := h.escalationService.Escalate(c.Request.Context(), app.EscalateInput{
		SessionID:  req.SessionID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Question:   req.Question,
		Transcript: transcript,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMissingContact):
			response.Error(c, http.StatusBadRequest, "Name and a valid email are required")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "escalation failed")
		}
		return
	}

	response.OK(c, result)
}

// stringOrEmpty treats a non-string session id as absent.
func stringOrEmpty(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
