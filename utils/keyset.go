package utils

import "sync"

// KeySet tracks identity keys (region codes, vehicle keys) to avoid duplicates
type KeySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewKeySet creates a new tracker
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]struct{})}
}

// Add returns true if the key is new (not seen before), false if duplicate
func (t *KeySet) Add(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.seen[key]; exists {
		return false
	}
	t.seen[key] = struct{}{}
	return true
}

// Count returns the number of tracked keys
func (t *KeySet) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
