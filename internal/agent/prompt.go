package agent

import (
	"fmt"
	"strings"

	"github.com/comigor/astro-go/internal/history"
)

const defaultSystemPrompt = "You are a helpful assistant for the Indian Space Science Data Centre (ISSDC). " +
	"Answer the user's question based only on the mission-related context below. " +
	"Avoid unnecessary repetition and be concise."

// Canned answers.
const (
	GreetingReply = "👋 Hello! How can I assist you today?\n\n" +
		"I can help you with:\n" +
		"🚀 Space Missions\n" +
		"🛰️ Data Access\n" +
		"❓ More Help\n\n" +
		"Or feel free to type your question below. 📩"
	ShortGreetingReply = "Hi! How can I assist you today?"
	FarewellReply      = "👋 You're welcome! Have a great day! 🌟"
	NoMatchReply       = "Sorry, I couldn't find information about that mission."
	MissingReply       = "⚠️ Model response missing or malformed."

	NoContext = "N/A"
)

// ErrorReply is how a failed summarization is shown to the user.
func ErrorReply(err error) string {
	return "⚠️ Error: " + err.Error()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// buildPrompt lays out the user turn sent to the LLM. The previous turn's
// context is prepended to the current one and the result is capped at limit runes.
func buildPrompt(mem history.Memory, context, question string, limit int) string {
	extended := truncate(strings.TrimSpace(mem.LastContext+"\n\n"+context), limit)

	return fmt.Sprintf(`### Context:
%s

### Previous Question:
%s

### Current Question:
%s

### Answer:`, extended, mem.LastQuestion, question)
}
