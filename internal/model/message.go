package model

import "time"

type Sender string

const (
	SenderGuest     Sender = "user"
	SenderAssistant Sender = "bot"
)

type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
