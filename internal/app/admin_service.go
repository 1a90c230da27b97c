package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hotel-concierge/internal/knowledge"
	"hotel-concierge/internal/ledger"
	"hotel-concierge/internal/model"
)

type AdminService struct {
	ledger         *ledger.Ledger
	topics         *ledger.TopicTally
	knowledge      *knowledge.Holder
	extractor      TextExtractor
	uploadDir      string
	statsRecentCap int
	now            func() time.Time
	log            *zap.Logger
}

type UploadInput struct {
	Filename string
	Data     []byte
}

type UploadResult struct {
	OK         bool   `json:"ok"`
	Path       string `json:"path,omitempty"`
	TextLength int    `json:"textLength"`
	Filename   string `json:"filename"`
}

func NewAdminService(
	sessions *ledger.Ledger,
	topics *ledger.TopicTally,
	holder *knowledge.Holder,
	extractor TextExtractor,
	uploadDir string,
	statsRecentCap int,
	log *zap.Logger,
) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{
		ledger:         sessions,
		topics:         topics,
		knowledge:      holder,
		extractor:      extractor,
		uploadDir:      strings.TrimSpace(uploadDir),
		statsRecentCap: statsRecentCap,
		now:            func() time.Time { return time.Now().UTC() },
		log:            log.Named("admin"),
	}
}

// UploadKnowledge extracts the document text and only then replaces the
// active knowledge source, so a failed upload keeps the previous one.
func (s *AdminService) UploadKnowledge(ctx context.Context, input UploadInput) (*UploadResult, error) {
	filename := filepath.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	if s.extractor == nil {
		return nil, &ExtractError{Err: fmt.Errorf("no text extractor configured")}
	}

	text, err := s.extractor.Extract(input.Data)
	if err != nil {
		s.log.Error("pdf text extraction failed", zap.String("filename", filename), zap.Error(err))
		return nil, &ExtractError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		s.log.Warn("uploaded pdf has no extractable text", zap.String("filename", filename))
	}

	path := s.store(filename, input.Data)
	s.knowledge.Replace(model.KnowledgeSource{
		RawText:    text,
		Filename:   filename,
		UploadedAt: s.now(),
	})

	length := utf8.RuneCountInString(text)
	s.log.Info("knowledge source replaced",
		zap.String("filename", filename),
		zap.Int("text_length", length),
		zap.String("path", path),
	)

	return &UploadResult{
		OK:         true,
		Path:       path,
		TextLength: length,
		Filename:   filename,
	}, nil
}

// Stats is computed fresh on every call.
func (s *AdminService) Stats() *model.StatsSnapshot {
	totals := s.ledger.Totals()

	var current *model.KnowledgeMeta
	lastUpdate := totals.LastUpdate
	if src, ok := s.knowledge.Current(); ok {
		meta := src.Meta()
		current = &meta
		if src.UploadedAt.After(lastUpdate) {
			lastUpdate = src.UploadedAt
		}
	}
	if lastUpdate.IsZero() {
		lastUpdate = s.now()
	}

	return &model.StatsSnapshot{
		TotalSessions:       totals.Sessions,
		UnansweredQuestions: totals.Unanswered,
		LastUpdate:          lastUpdate,
		CurrentPDF:          current,
		Topics:              s.topics.Snapshot(),
		RecentSessions:      s.ledger.Recent(s.statsRecentCap),
	}
}

// store keeps the raw upload next to the service for operators; failure is
// logged and reported as an empty path.
func (s *AdminService) store(filename string, data []byte) string {
	if s.uploadDir == "" {
		return ""
	}
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.log.Warn("create upload dir failed", zap.String("dir", s.uploadDir), zap.Error(err))
		return ""
	}
	path := filepath.Join(s.uploadDir, uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Warn("store upload failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	return path
}
