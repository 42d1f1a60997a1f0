package widget

import "sync"

// Sender labels.
const (
	SenderUser = "🧑‍💻 You"
	SenderBot  = "🤖 ASTRO"
)

// Message is one line of the transcript.
type Message struct {
	Sender string
	Text   string
}

// Render formats the message the way the transcript shows it.
func (m Message) Render() string {
	return m.Sender + ": " + m.Text
}

// Transcript is the ordered, append-only list of rendered messages.
// It is safe for concurrent use.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
	onAppend func(Message)
}

// NewTranscript creates an empty transcript. onAppend, if not nil, is called
// after every append, outside the lock.
func NewTranscript(onAppend func(Message)) *Transcript {
	return &Transcript{onAppend: onAppend}
}

// Append adds m at the end.
func (t *Transcript) Append(m Message) {
	t.mu.Lock()
	t.messages = append(t.messages, m)
	t.mu.Unlock()

	if t.onAppend != nil {
		t.onAppend(m)
	}
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len is the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
