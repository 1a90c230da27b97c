// Package ledger keeps per-session conversation counters for guest chats,
// the bounded recent-sessions view shown to staff, and the topic tally.
//
// State lives in memory for the lifetime of the process. Every exported
// method is safe for concurrent use and never fails on an unknown or
// malformed session id.
package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hotel-concierge/internal/model"
)

const (
	DefaultRecentCap = 50
	maxSessionIDLen  = 128
)

type Ledger struct {
	mu         sync.Mutex
	sessions   map[string]*model.Session
	recent     []string // newest first
	recentCap  int
	unanswered int
	lastUpdate time.Time

	now   func() time.Time
	newID func() string
}

type Option func(*Ledger)

func WithRecentCap(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.recentCap = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		sessions:  make(map[string]*model.Session),
		recentCap: DefaultRecentCap,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type RecordResult struct {
	SessionID    string
	IsNewSession bool
}

// RecordMessage counts one inbound guest message. Absent, malformed or unknown
// ids get a freshly minted session.
func (l *Ledger) RecordMessage(sessionID, text string) RecordResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	session, ok := l.lookup(sessionID)
	isNew := false
	if !ok {
		session = l.create(now)
		isNew = true
	}

	session.QuestionCount++
	session.Messages = append(session.Messages, model.Message{
		Sender:    model.SenderGuest,
		Text:      text,
		Timestamp: now,
	})
	l.lastUpdate = now

	return RecordResult{SessionID: session.ID, IsNewSession: isNew}
}

// RecordAssistantReply appends the bot answer. A reply that could not answer
// the question moves the session to Needs Review for good.
func (l *Ledger) RecordAssistantReply(sessionID, text string, canAnswer bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, ok := l.lookup(sessionID)
	if !ok {
		return
	}

	now := l.now()
	session.Messages = append(session.Messages, model.Message{
		Sender:    model.SenderAssistant,
		Text:      text,
		Timestamp: now,
	})
	if !canAnswer {
		session.UnansweredCount++
		session.LastUnansweredQuestion = lastGuestText(session.Messages)
		session.Status = model.StatusNeedsReview
		l.unanswered++
	}
	l.lastUpdate = now
}

// MarkNeedsReview reports whether the session exists.
func (l *Ledger) MarkNeedsReview(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, ok := l.lookup(sessionID)
	if !ok {
		return false
	}
	if session.Status != model.StatusNeedsReview {
		session.Status = model.StatusNeedsReview
		l.lastUpdate = l.now()
	}
	return true
}

func (l *Ledger) History(sessionID string) []model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, ok := l.lookup(sessionID)
	if !ok {
		return []model.Message{}
	}
	out := make([]model.Message, len(session.Messages))
	copy(out, session.Messages)
	return out
}

// Session returns a copy of the session, messages included.
func (l *Ledger) Session(sessionID string) (model.Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, ok := l.lookup(sessionID)
	if !ok {
		return model.Session{}, false
	}
	cp := *session
	cp.Messages = make([]model.Message, len(session.Messages))
	copy(cp.Messages, session.Messages)
	return cp, true
}

// Recent returns up to limit summaries, newest first. limit <= 0 means the
// whole view.
func (l *Ledger) Recent(limit int) []model.SessionSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.SessionSummary, 0, n)
	for _, id := range l.recent[:n] {
		out = append(out, l.sessions[id].Summary())
	}
	return out
}

type Totals struct {
	Sessions   int
	Unanswered int
	LastUpdate time.Time
}

func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Totals{
		Sessions:   len(l.sessions),
		Unanswered: l.unanswered,
		LastUpdate: l.lastUpdate,
	}
}

func (l *Ledger) lookup(sessionID string) (*model.Session, bool) {
	id := strings.TrimSpace(sessionID)
	if id == "" || len(id) > maxSessionIDLen {
		return nil, false
	}
	session, ok := l.sessions[id]
	return session, ok
}

// create must be called with mu held.
func (l *Ledger) create(now time.Time) *model.Session {
	id := l.newID()
	for _, taken := l.sessions[id]; taken; _, taken = l.sessions[id] {
		id = l.newID()
	}
	session := &model.Session{
		ID:        id,
		StartedAt: now,
		Status:    model.StatusResolved,
		Messages:  []model.Message{},
	}
	l.sessions[id] = session

	l.recent = append([]string{id}, l.recent...)
	if len(l.recent) > l.recentCap {
		l.recent = l.recent[:l.recentCap]
	}
	return session
}

func lastGuestText(messages []model.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender == model.SenderGuest {
			return messages[i].Text
		}
	}
	return ""
}
