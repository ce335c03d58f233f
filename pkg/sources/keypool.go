package sources

import (
	"sync"

	"jobtrack/pkg/config"
)

// KeyPool rotates RapidAPI credentials. Keys tagged "backup" are held in
// reserve: they are skipped during automatic rotation and only used when
// selected explicitly by name.
type KeyPool struct {
	mu           sync.Mutex
	keys         []config.RapidAPIKey
	currentIndex int
}

// NewKeyPool builds a pool from the configured key list.
func NewKeyPool(keys []config.RapidAPIKey) *KeyPool {
	return &KeyPool{keys: keys}
}

// Size returns the number of keys in the pool.
func (p *KeyPool) Size() int {
	return len(p.keys)
}

// Current returns the active credential.
func (p *KeyPool) Current() (name, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", ""
	}
	k := p.keys[p.currentIndex]
	return k.Name, k.Key
}

// Rotate advances to the next usable key, skipping empty and backup entries.
// Returns false when no other key is available.
func (p *KeyPool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) <= 1 {
		return false
	}
	for i := 0; i < len(p.keys)-1; i++ {
		p.currentIndex = (p.currentIndex + 1) % len(p.keys)
		k := p.keys[p.currentIndex]
		if k.Key != "" && k.ScheduleTime != "backup" {
			return true
		}
	}
	return false
}

// Select makes the named key current. Used by the scheduler to pin the key
// bound to a run slot before a scrape starts.
func (p *KeyPool) Select(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, k := range p.keys {
		if k.Name == name && k.Key != "" {
			p.currentIndex = i
			return true
		}
	}
	return false
}
