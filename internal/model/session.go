package model

import "time"

type SessionStatus string

const (
	StatusResolved    SessionStatus = "Resolved"
	StatusNeedsReview SessionStatus = "Needs Review"
)

type Session struct {
	ID                     string        `json:"id"`
	QuestionCount          int           `json:"questionCount"`
	UnansweredCount        int           `json:"unansweredCount"`
	LastUnansweredQuestion string        `json:"lastUnansweredQuestion,omitempty"`
	StartedAt              time.Time     `json:"startedAt"`
	Status                 SessionStatus `json:"status"`
	Messages               []Message     `json:"messages"`
}

// SessionSummary is the lightweight row shown in the admin dashboard.
type SessionSummary struct {
	ID              string        `json:"id"`
	QuestionCount   int           `json:"questionCount"`
	UnansweredCount int           `json:"unansweredCount"`
	Status          SessionStatus `json:"status"`
	StartTime       time.Time     `json:"startTime"`
}

func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:              s.ID,
		QuestionCount:   s.QuestionCount,
		UnansweredCount: s.UnansweredCount,
		Status:          s.Status,
		StartTime:       s.StartedAt,
	}
}
