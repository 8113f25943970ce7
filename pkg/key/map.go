package key

import (
	"sort"
	"sync"
)

// Map records a debug label for each live key.
// It is safe for concurrent use; the inspector reads it while an update
// cycle writes to it.
type Map struct {
	mu     sync.RWMutex
	labels map[Key]string
}

// NewMap creates an empty label registry.
func NewMap() *Map {
	return &Map{labels: make(map[Key]string)}
}

// Register sets the label for k, replacing any previous one.
func (m *Map) Register(k Key, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.labels == nil {
		m.labels = make(map[Key]string)
	}
	m.labels[k] = label
}

// Label returns the label registered for k.
func (m *Map) Label(k Key) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.labels[k]
	return l, ok
}

// Debug returns a printable name for k: its label when one is registered,
// the raw key otherwise.
func (m *Map) Debug(k Key) string {
	if m == nil {
		return k.String()
	}
	if l, ok := m.Label(k); ok {
		return l
	}
	return k.String()
}

// Remove forgets the label of k.
func (m *Map) Remove(k Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.labels, k)
}

// Len returns the number of registered labels.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.labels)
}

// Entry is one key with its label.
type Entry struct {
	Key   Key    `json:"key"`
	Label string `json:"label"`
}

// Entries returns all registered labels sorted by label.
func (m *Map) Entries() []Entry {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.labels))
	for k, l := range m.labels {
		out = append(out, Entry{Key: k, Label: l})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Label == out[j].Label {
			return out[i].Key < out[j].Key
		}
		return out[i].Label < out[j].Label
	})
	return out
}
