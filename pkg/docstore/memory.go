package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It backs tests and the single-device
// offline mode, where both "clients" live in one process anyway.
type Memory struct {
	mu            sync.RWMutex
	docs          map[string][]byte
	watchers      map[string]map[string]chan Snapshot
	childWatchers map[string]map[string]chan []Snapshot
}

func NewMemory() *Memory {
	return &Memory{
		docs:          make(map[string][]byte),
		watchers:      make(map[string]map[string]chan Snapshot),
		childWatchers: make(map[string]map[string]chan []Snapshot),
	}
}

func (m *Memory) Get(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.docs[path]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Set(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.docs[path] = stored
	m.notifyLocked(path, stored)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(map[string]any)
	if existing, ok := m.docs[path]; ok {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return fmt.Errorf("update %s: existing document is not an object: %w", path, err)
		}
	}
	for key, value := range fields {
		merged[key] = value
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	m.docs[path] = data
	m.notifyLocked(path, data)
	return nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	delete(m.docs, path)
	m.notifyLocked(path, nil)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Children(_ context.Context, path string) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.childrenLocked(path), nil
}

func (m *Memory) Observe(ctx context.Context, path string) (<-chan Snapshot, error) {
	ch := make(chan Snapshot, 16)
	token := uuid.NewString()

	m.mu.Lock()
	if m.watchers[path] == nil {
		m.watchers[path] = make(map[string]chan Snapshot)
	}
	m.watchers[path][token] = ch
	// Enqueued under the lock so a concurrent write cannot land before the
	// initial snapshot and leave a stale document delivered last. The fresh
	// buffered channel cannot block here.
	ch <- Snapshot{Path: path, Data: m.docs[path]}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if watchers, ok := m.watchers[path]; ok {
			if _, ok := watchers[token]; ok {
				delete(watchers, token)
				close(ch)
			}
		}
		m.mu.Unlock()
	}()

	return ch, nil
}

func (m *Memory) ObserveChildren(ctx context.Context, path string) (<-chan []Snapshot, error) {
	ch := make(chan []Snapshot, 16)
	token := uuid.NewString()

	m.mu.Lock()
	if m.childWatchers[path] == nil {
		m.childWatchers[path] = make(map[string]chan []Snapshot)
	}
	m.childWatchers[path][token] = ch
	ch <- m.childrenLocked(path)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if watchers, ok := m.childWatchers[path]; ok {
			if _, ok := watchers[token]; ok {
				delete(watchers, token)
				close(ch)
			}
		}
		m.mu.Unlock()
	}()

	return ch, nil
}

func (m *Memory) childrenLocked(path string) []Snapshot {
	var children []Snapshot
	for docPath, data := range m.docs {
		if Parent(docPath) != path {
			continue
		}
		out := make([]byte, len(data))
		copy(out, data)
		children = append(children, Snapshot{Path: docPath, Data: out})
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })
	return children
}

// notifyLocked fans the change out to path watchers and to child watchers of
// the parent. A lagging subscriber loses its oldest queued notification, never
// the newest: a deletion is terminal and nothing later would catch the
// observer up if it were dropped.
func (m *Memory) notifyLocked(path string, data []byte) {
	for _, ch := range m.watchers[path] {
		push(ch, Snapshot{Path: path, Data: data})
	}

	parent := Parent(path)
	if parent == "" {
		return
	}
	if watchers := m.childWatchers[parent]; len(watchers) > 0 {
		children := m.childrenLocked(parent)
		for _, ch := range watchers {
			push(ch, children)
		}
	}
}

// push delivers value, evicting the oldest queued entry while the subscriber
// lags. The channel is only closed under the same lock push runs under, so
// the send cannot race a close.
func push[T any](ch chan T, value T) {
	for {
		select {
		case ch <- value:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
