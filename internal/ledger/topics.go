package ledger

import (
	"sort"
	"strings"
	"sync"

	"hotel-concierge/internal/model"
)

const DefaultTopic = "Uncategorized"

// TopicTally counts questions per topic label reported by the chat workflow.
type TopicTally struct {
	mu           sync.Mutex
	counts       map[string]int
	countDefault bool
}

// NewTopicTally builds a tally. When countDefault is false the DefaultTopic
// label is never counted.
func NewTopicTally(countDefault bool) *TopicTally {
	return &TopicTally{
		counts:       make(map[string]int),
		countDefault: countDefault,
	}
}

func NormalizeTopic(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return DefaultTopic
	}
	return topic
}

// Increment reports whether the topic was counted.
func (t *TopicTally) Increment(topic string) bool {
	topic = NormalizeTopic(topic)
	if topic == DefaultTopic && !t.countDefault {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[topic]++
	return true
}

// Snapshot is ordered by count descending, ties by label.
func (t *TopicTally) Snapshot() []model.TopicCount {
	t.mu.Lock()
	out := make([]model.TopicCount, 0, len(t.counts))
	for topic, count := range t.counts {
		out = append(out, model.TopicCount{Topic: topic, Count: count})
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}
