package model

import "time"

// KnowledgeSource is the hotel document currently used to ground answers.
type KnowledgeSource struct {
	RawText    string
	Filename   string
	UploadedAt time.Time
}

type KnowledgeMeta struct {
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func (k KnowledgeSource) Meta() KnowledgeMeta {
	return KnowledgeMeta{Filename: k.Filename, UploadedAt: k.UploadedAt}
}
