package model

import "time"

type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type StatsSnapshot struct {
	TotalSessions       int              `json:"totalSessions"`
	UnansweredQuestions int              `json:"unansweredQuestions"`
	LastUpdate          time.Time        `json:"lastUpdate"`
	CurrentPDF          *KnowledgeMeta   `json:"currentPdf"`
	Topics              []TopicCount     `json:"topics"`
	RecentSessions      []SessionSummary `json:"recentSessions"`
}
