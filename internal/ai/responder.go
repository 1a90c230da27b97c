package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"hotel-concierge/internal/model"
	"hotel-concierge/internal/workflow"
)

const maxKnowledgeRunes = 60000

var ErrEmptyCompletion = errors.New("empty llm choices")

type ChatConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	HotelName  string
	MaxContext int
	Timeout    time.Duration
}

// Responder answers guest questions with an OpenAI-compatible chat
// completion API instead of the n8n chat workflow.
type Responder struct {
	client *openai.Client
	cfg    ChatConfig
}

func NewResponder(cfg ChatConfig) *Responder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.MaxContext <= 0 {
		cfg.MaxContext = 20
	}
	return &Responder{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

func (r *Responder) Respond(ctx context.Context, req workflow.ChatRequest) (*workflow.ChatReply, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.cfg.Model,
		Messages:    BuildPromptMessages(r.cfg.HotelName, req, r.cfg.MaxContext),
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	return ParseCompletion(resp.Choices[0].Message.Content), nil
}

func BuildPromptMessages(hotelName string, req workflow.ChatRequest, maxContext int) []openai.ChatCompletionMessage {
	history := req.History
	if maxContext > 0 && len(history) > maxContext {
		history = history[len(history)-maxContext:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(hotelName, req.HotelInfo),
	})
	for _, item := range history {
		role := openai.ChatMessageRoleUser
		if item.Sender == model.SenderAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: item.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: strings.TrimSpace(req.Message),
	})
	return messages
}

// ParseCompletion reads the JSON reply the system prompt asks for. Anything
// that is not such JSON is taken as a plain answer.
func ParseCompletion(content string) *workflow.ChatReply {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if reply, err := workflow.ParseChatReply([]byte(trimmed)); err == nil && reply.Answer != "" {
			return reply
		}
	}
	return &workflow.ChatReply{Answer: strings.TrimSpace(content), CanAnswer: true}
}

func systemPrompt(hotelName, hotelInfo string) string {
	if hotelName == "" {
		hotelName = "the hotel"
	}
	info := strings.TrimSpace(hotelInfo)
	if runes := []rune(info); len(runes) > maxKnowledgeRunes {
		info = string(runes[:maxKnowledgeRunes])
	}
	if info == "" {
		info = "(no hotel document has been uploaded yet)"
	}

	var b strings.Builder
	b.WriteString("You are the guest concierge for ")
	b.WriteString(hotelName)
	b.WriteString(". Answer only from the hotel information below. ")
	b.WriteString("If the information does not contain the answer, say so politely and set canAnswer to false. ")
	b.WriteString(`Reply with JSON only: {"answer": string, "topic": short category such as Rooms, Restaurant, Amenities, Check-in, Policies, "canAnswer": boolean}.`)
	b.WriteString("\n\nHotel information:\n")
	b.WriteString(info)
	return b.String()
}
