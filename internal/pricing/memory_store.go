package pricing

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// MemoryRuleStore is an in-memory implementation of RuleStore.
// Writers serialize on mu and publish a fresh immutable snapshot; readers never lock.
type MemoryRuleStore struct {
	mu      sync.Mutex
	rules   map[string]PricingRule
	nextSeq int64
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

func NewMemoryRuleStore() *MemoryRuleStore {
	s := &MemoryRuleStore{
		rules: make(map[string]PricingRule),
		now:   time.Now,
	}
	s.current.Store(&Snapshot{Version: 0, TakenAt: s.now(), Rules: []PricingRule{}})
	return s
}

// Snapshot returns the latest published snapshot.
func (s *MemoryRuleStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.current.Load(), nil
}

// Get returns a copy of a rule by ID.
func (s *MemoryRuleStore) Get(id string) (PricingRule, bool) {
	for _, r := range s.current.Load().Rules {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return PricingRule{}, false
}

// Upsert validates and stores rule, assigning an ID and creation sequence to new rules.
func (s *MemoryRuleStore) Upsert(ctx context.Context, rule PricingRule) (PricingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule = rule.Clone()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	now := s.now()
	if existing, ok := s.rules[rule.ID]; ok {
		rule.Sequence = existing.Sequence
		rule.CreatedAt = existing.CreatedAt
	} else {
		s.nextSeq++
		rule.Sequence = s.nextSeq
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	if err := ValidateRule(rule); err != nil {
		return PricingRule{}, err
	}

	s.rules[rule.ID] = rule
	s.publishLocked()
	return rule.Clone(), nil
}

// Delete removes a rule.
func (s *MemoryRuleStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return NewNotFoundError(id)
	}
	delete(s.rules, id)
	s.publishLocked()
	return nil
}

// publishLocked swaps in a new snapshot. Callers hold mu.
func (s *MemoryRuleStore) publishLocked() {
	rules := make([]PricingRule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r.Clone())
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Sequence < rules[j].Sequence })

	prev := s.current.Load()
	s.current.Store(&Snapshot{
		Version: prev.Version + 1,
		TakenAt: s.now(),
		Rules:   rules,
	})
}
