package widget

import "sync"

// Input is the text field the user types into.
type Input struct {
	mu    sync.Mutex
	value string
}

// Value returns the current text.
func (in *Input) Value() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.value
}

// Set replaces the text.
func (in *Input) Set(s string) {
	in.mu.Lock()
	in.value = s
	in.mu.Unlock()
}

// Clear empties the field.
func (in *Input) Clear() { in.Set("") }
