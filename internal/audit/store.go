// Servonix - Bus Complaint Management and Real-Time Notifications
// Copyright 2026 Servonix Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"sync"
	"time"
)

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	List(ctx context.Context, q Query) ([]Event, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// MemoryStore is a bounded in-memory Store. It backs tests and can serve
// deployments that do not need durable audit history.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	maxLen int
}

// NewMemoryStore creates a MemoryStore holding at most maxLen events.
// Older events are evicted first.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{maxLen: maxLen}
}

func (s *MemoryStore) Save(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *event)
	if len(s.events) > s.maxLen {
		s.events = s.events[len(s.events)-s.maxLen:]
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, q Query) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Event
	// Newest first, same order the SQL store returns.
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.matches(&s.events[i], &q) {
			matched = append(matched, s.events[i])
		}
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *MemoryStore) matches(event *Event, q *Query) bool {
	if len(q.Actions) > 0 {
		found := false
		for _, a := range q.Actions {
			if event.Action == a {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.ActorID != 0 && event.ActorID != q.ActorID {
		return false
	}
	if q.TargetType != "" && event.TargetType != q.TargetType {
		return false
	}
	if !q.Since.IsZero() && event.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && event.Timestamp.After(q.Until) {
		return false
	}
	return true
}

func (s *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var pruned int64
	for _, e := range s.events {
		if e.Timestamp.Before(olderThan) {
			pruned++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return pruned, nil
}

// Len reports how many events are currently held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
