package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gookit/color"

	"github.com/comigor/astro-go/internal/widget"
)

// Printer writes transcript lines and typing notices to a plain stream.
// Wire its methods into widget.Options.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	colored bool
}

// NewPrinter creates a Printer; colored adds ANSI colors to the labels.
func NewPrinter(out io.Writer, colored bool) *Printer {
	return &Printer{out: out, colored: colored}
}

// Options returns widget hooks that print through p.
func (p *Printer) Options() widget.Options {
	return widget.Options{OnAppend: p.Message, OnTyping: p.Typing}
}

// Message prints one transcript line.
func (p *Printer) Message(m widget.Message) {
	label := m.Sender + ":"
	text := m.Text
	if p.colored {
		if m.Sender == widget.SenderUser {
			label = color.New(color.FgCyan, color.OpBold).Sprint(label)
		} else {
			label = color.New(color.FgMagenta, color.OpBold).Sprint(label)
		}
		if strings.HasPrefix(text, widget.ErrorPrefix) {
			text = color.Red.Sprint(text)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, label, text)
}

// Typing prints a notice when the indicator turns on.
func (p *Printer) Typing(visible bool) {
	if !visible {
		return
	}
	notice := "🤖 ASTRO is typing…"
	if p.colored {
		notice = color.Gray.Sprint(notice)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, notice)
}

// RunLine reads one message per line from in until EOF, "/quit" or ctx is
// done. Each reply is awaited before the next line is read.
func RunLine(ctx context.Context, w *widget.Widget, in io.Reader, prompt io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if prompt != nil {
			fmt.Fprint(prompt, "› ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}

		done := w.SubmitText(ctx, line)
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			w.Wait()
			return ctx.Err()
		}
	}
}
