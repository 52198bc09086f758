package inspect

import (
	"errors"
	"sync"

	"github.com/agentic-research/scenebridge/internal/bridge"
)

// ErrClosed is returned by a HotSwap after Close.
var ErrClosed = errors.New("inspect: layer closed")

// HotSwapLayer is a thread-safe holder of the current bridge, replaced
// whenever the cache file is rewritten.
type HotSwapLayer struct {
	mu         sync.RWMutex
	current    *bridge.Data
	generation int
}

func NewHotSwapLayer(initial *bridge.Data) *HotSwapLayer {
	return &HotSwapLayer{current: initial, generation: 1}
}

// Swap replaces the current bridge and closes the old one. Readers inside
// View finish against the old bridge before it is closed.
func (h *HotSwapLayer) Swap(next *bridge.Data) error {
	h.mu.Lock()
	old := h.current
	h.current = next
	h.generation++
	h.mu.Unlock()
	if old == nil {
		return nil
	}
	return old.Close()
}

// View calls fn with the current bridge under a read lock.
func (h *HotSwapLayer) View(fn func(d *bridge.Data) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil {
		return ErrClosed
	}
	return fn(h.current)
}

// Generation counts the bridges served so far, starting at 1.
func (h *HotSwapLayer) Generation() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.generationLocked()
}

// generationLocked is Generation for callers already inside View.
func (h *HotSwapLayer) generationLocked() int {
	return h.generation
}

// Close closes the current bridge. Later views fail with ErrClosed.
func (h *HotSwapLayer) Close() error {
	h.mu.Lock()
	old := h.current
	h.current = nil
	h.mu.Unlock()
	if old == nil {
		return nil
	}
	return old.Close()
}
