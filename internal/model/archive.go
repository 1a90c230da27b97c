package model

import (
	"encoding/json"
	"time"
)

type ArchiveKind string

const (
	ArchiveKindMessage    ArchiveKind = "message"
	ArchiveKindEscalation ArchiveKind = "escalation"
)

// ArchiveEvent is the queue payload consumed by the archive worker.
type ArchiveEvent struct {
	Kind       ArchiveKind       `json:"kind"`
	Message    *TranscriptEntry  `json:"message,omitempty"`
	Escalation *EscalationRecord `json:"escalation,omitempty"`
}

type TranscriptEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:128;not null;index" json:"session_id"`
	Sender    string    `gorm:"size:16;not null" json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Topic     string    `gorm:"size:128" json:"topic,omitempty"`
	CanAnswer *bool     `json:"can_answer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EscalationRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"size:128;index" json:"session_id"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	Email      string    `gorm:"size:255;not null;index" json:"email"`
	Phone      string    `gorm:"size:64" json:"phone"`
	Question   string    `gorm:"type:text" json:"question"`
	Transcript string    `gorm:"type:mediumtext" json:"transcript"`
	Outcome    string    `gorm:"size:16;not null" json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewMessageEvent(entry TranscriptEntry) ArchiveEvent {
	return ArchiveEvent{Kind: ArchiveKindMessage, Message: &entry}
}

func NewEscalationEvent(record EscalationRecord) ArchiveEvent {
	return ArchiveEvent{Kind: ArchiveKindEscalation, Escalation: &record}
}

// TranscriptText renders a raw JSON transcript for storage; null and empty become "".
func TranscriptText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	return string(raw)
}
