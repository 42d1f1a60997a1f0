package widget

import "sync"

// TypingIndicator is visible while at least one request is in flight.
type TypingIndicator struct {
	mu       sync.Mutex
	pending  int
	onChange func(visible bool)
}

// NewTypingIndicator creates a hidden indicator. onChange, if not nil, is
// called on every hidden/visible transition while the indicator is locked,
// so it must not call back into the indicator.
func NewTypingIndicator(onChange func(visible bool)) *TypingIndicator {
	return &TypingIndicator{onChange: onChange}
}

// Show marks one more request in flight.
func (ti *TypingIndicator) Show() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.pending++
	if ti.pending == 1 && ti.onChange != nil {
		ti.onChange(true)
	}
}

// Hide marks one request settled. Extra calls are ignored.
func (ti *TypingIndicator) Hide() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if ti.pending == 0 {
		return
	}
	ti.pending--
	if ti.pending == 0 && ti.onChange != nil {
		ti.onChange(false)
	}
}

// Visible reports whether any request is in flight.
func (ti *TypingIndicator) Visible() bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.pending > 0
}
