// Package knowledge holds the hotel document whose text grounds chat answers.
package knowledge

import (
	"sync"

	"hotel-concierge/internal/model"
)

// Holder keeps exactly one active knowledge source. Replace swaps it whole.
type Holder struct {
	mu      sync.RWMutex
	current *model.KnowledgeSource
}

func NewHolder() *Holder {
	return &Holder{}
}

func (h *Holder) Replace(src model.KnowledgeSource) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = &src
}

func (h *Holder) Current() (model.KnowledgeSource, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return model.KnowledgeSource{}, false
	}
	return *h.current, true
}

// Text returns the active document text, or "" when nothing was uploaded.
func (h *Holder) Text() string {
	src, _ := h.Current()
	return src.RawText
}
