// Package widget is the chat client core: it turns submitted input into a
// user message, asks the server, and appends the reply to the transcript
// while a typing indicator shows the request is pending.
package widget

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/comigor/astro-go/internal/logger"
)

// ErrorPrefix marks a reply that is a failure, not an answer.
const ErrorPrefix = "⚠️ Error: "

// Asker sends one message to the assistant.
type Asker interface {
	Ask(ctx context.Context, message, sessionID string) (string, error)
}

// Options are optional render hooks.
type Options struct {
	// OnAppend runs after every transcript append.
	OnAppend func(Message)
	// OnTyping runs when the indicator turns on or off.
	OnTyping func(visible bool)
}

// Widget wires an input field, a transcript and a typing indicator to an Asker.
// Submissions may overlap; their replies land in completion order.
type Widget struct {
	Input      *Input
	Transcript *Transcript
	Typing     *TypingIndicator

	asker     Asker
	sessionID string
	wg        sync.WaitGroup
}

// New creates a widget that tags every request with sessionID.
func New(asker Asker, sessionID string, opts Options) *Widget {
	return &Widget{
		Input:      &Input{},
		Transcript: NewTranscript(opts.OnAppend),
		Typing:     NewTypingIndicator(opts.OnTyping),
		asker:      asker,
		sessionID:  sessionID,
	}
}

// Submit sends the current input. Blank input is ignored and yields a nil
// channel. Otherwise the user message is appended, the input cleared and the
// indicator shown before Submit returns; the bot message is delivered on the
// returned channel once the request settles and the indicator is hidden.
func (w *Widget) Submit(ctx context.Context) <-chan Message {
	text := strings.TrimSpace(w.Input.Value())
	if text == "" {
		return nil
	}

	w.Transcript.Append(Message{Sender: SenderUser, Text: text})
	w.Input.Clear()
	w.Typing.Show()

	done := make(chan Message, 1)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(done)

		var reply Message
		func() {
			defer w.Typing.Hide()
			reply = Message{Sender: SenderBot, Text: w.ask(ctx, text)}
			w.Transcript.Append(reply)
		}()
		done <- reply
	}()
	return done
}

// SubmitText replaces the input with s and submits it.
func (w *Widget) SubmitText(ctx context.Context, s string) <-chan Message {
	w.Input.Set(s)
	return w.Submit(ctx)
}

// Wait blocks until every in-flight request has settled.
func (w *Widget) Wait() {
	w.wg.Wait()
}

func (w *Widget) ask(ctx context.Context, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			logger.L.Error("ask panicked", "panic", r)
			reply = ErrorPrefix + fmt.Sprint(r)
		}
	}()

	answer, err := w.asker.Ask(ctx, text, w.sessionID)
	if err != nil {
		logger.L.Warn("ask failed", "error", err)
		return ErrorPrefix + err.Error()
	}
	return answer
}
