package app

import (
	"context"
	"errors"
	"sync"

	"hotel-concierge/internal/model"
	"hotel-concierge/internal/workflow"
)

type stubResponder struct {
	reply *workflow.ChatReply
	err   error
	block bool

	mu   sync.Mutex
	reqs []workflow.ChatRequest
}

func (s *stubResponder) Respond(ctx context.Context, req workflow.ChatRequest) (*workflow.ChatReply, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.reply == nil {
		return nil, nil
	}
	cp := *s.reply
	return &cp, nil
}

func (s *stubResponder) last() workflow.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

type stubForwarder struct {
	err error
	// failures is the number of leading calls that fail with errBoom.
	failures int
	calls    int
	reqs     []workflow.EscalationRequest
}

func (s *stubForwarder) Forward(_ context.Context, req workflow.EscalationRequest) error {
	s.calls++
	if s.calls <= s.failures {
		return errBoom
	}
	s.reqs = append(s.reqs, req)
	return s.err
}

type recordingPublisher struct {
	err    error
	events []model.ArchiveEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event model.ArchiveEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type stubGuard struct {
	seen map[string]bool
	err  error
}

func (g *stubGuard) Acquire(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

func (g *stubGuard) Release(_ context.Context, key string) error {
	delete(g.seen, key)
	return g.err
}

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract([]byte) (string, error) {
	return s.text, s.err
}

var errBoom = errors.New("boom")
