package knowledge

import (
	"strings"

	"github.com/samber/lo"
)

// Intent is the coarse kind of a user query.
type Intent int

const (
	IntentQuestion Intent = iota
	IntentGreeting
	IntentFarewell
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentFarewell:
		return "farewell"
	default:
		return "question"
	}
}

var (
	GreetingKeywords = []string{"hi", "hello", "hey", "hii", "good morning", "good afternoon", "good evening"}
	FarewellKeywords = []string{"bye", "goodbye", "see you", "see ya", "thank you", "thanks", "ok bye", "bye bye"}
)

// Normalize lowercases and trims a query. Keyword matching is exact on the
// normalized form, so "Hello there" is a question, not a greeting.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Classify reports whether the query is a greeting, a farewell or a question.
func Classify(query string) Intent {
	q := Normalize(query)
	switch {
	case lo.Contains(GreetingKeywords, q):
		return IntentGreeting
	case lo.Contains(FarewellKeywords, q):
		return IntentFarewell
	default:
		return IntentQuestion
	}
}
