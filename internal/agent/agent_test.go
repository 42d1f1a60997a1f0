package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	"github.com/comigor/astro-go/internal/config"
	"github.com/comigor/astro-go/internal/errs"
	"github.com/comigor/astro-go/internal/history"
	"github.com/comigor/astro-go/internal/knowledge"
)

type mockLLM struct {
	calls    []openai.ChatCompletionResponse
	err      error
	requests []openai.ChatCompletionRequest
}

func (m *mockLLM) CreateChatCompletion(ctx context.Context, r openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, r)
	if m.err != nil {
		return openai.ChatCompletionResponse{}, m.err
	}
	if len(m.calls) == 0 {
		panic("mockLLM: no more responses configured for request: " + r.Messages[len(r.Messages)-1].Content)
	}
	resp := m.calls[0]
	m.calls = m.calls[1:]
	return resp, nil
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: content}}},
	}
}

type failingRetriever struct{}

func (failingRetriever) Search(context.Context, string, int) ([]knowledge.Hit, error) {
	return nil, errors.New("index unavailable")
}

func (failingRetriever) Best(context.Context, string) (knowledge.Hit, error) {
	return knowledge.Hit{}, errors.New("index unavailable")
}

func (failingRetriever) GreetingReply(string) (string, bool) { return "", false }

var testCfg = config.Config{
	LLM:       config.LLMConfig{Model: "phi"},
	Knowledge: config.KnowledgeConfig{ContextLimit: 1000, MemoryLimit: 600},
}

func newTestAgent(t *testing.T, llmClient *mockLLM, greetings map[string]string) (*Agent, *history.Store) {
	t.Helper()
	kb, err := knowledge.New([]knowledge.Mission{
		{Details: "Chandrayaan-3 landed near the lunar south pole in August 2023."},
		{Details: "Aditya-L1 is India's first solar observatory, stationed at the L1 Lagrange point."},
	}, greetings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kb.Close() })

	store := history.Open("")
	return New(llmClient, kb, store, testCfg), store
}

// TestRespond_Greeting verifies that greetings never reach the LLM.
func TestRespond_Greeting(t *testing.T) {
	a, store := newTestAgent(t, &mockLLM{}, nil)

	ans, err := a.Respond(context.Background(), "Hello", "user_1")
	require.NoError(t, err)
	require.Equal(t, GreetingReply, ans.Text)
	require.Equal(t, NoContext, ans.Context)

	msgs := store.Messages(context.Background(), "user_1")
	require.Len(t, msgs, 2)
	require.Equal(t, history.RoleUser, msgs[0].Role)
	require.Equal(t, GreetingReply, msgs[1].Content)
}

func TestRespond_CustomGreeting(t *testing.T) {
	a, _ := newTestAgent(t, &mockLLM{}, map[string]string{"good morning": "Good morning, explorer!"})

	ans, err := a.Respond(context.Background(), "good morning", "user_1")
	require.NoError(t, err)
	require.Equal(t, "Good morning, explorer!", ans.Text)
}

func TestRespond_Farewell(t *testing.T) {
	a, _ := newTestAgent(t, &mockLLM{}, nil)

	ans, err := a.Respond(context.Background(), "  thank you ", "user_1")
	require.NoError(t, err)
	require.Equal(t, FarewellReply, ans.Text)
	require.Equal(t, NoContext, ans.Context)
}

// TestRespond_Question runs two turns and checks the second prompt carries
// the first turn's question and context.
func TestRespond_Question(t *testing.T) {
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{
		reply("Chandrayaan-3 landed near the south pole."),
		reply("Aditya-L1 observes the Sun."),
	}}
	a, store := newTestAgent(t, llmClient, nil)
	ctx := context.Background()

	ans, err := a.Respond(ctx, "Where did Chandrayaan-3 land?", "s1")
	require.NoError(t, err)
	require.Equal(t, "Chandrayaan-3 landed near the south pole.", ans.Text)
	require.Contains(t, ans.Context, "lunar south pole")

	require.Len(t, llmClient.requests, 1)
	first := llmClient.requests[0]
	require.Equal(t, "phi", first.Model)
	require.Equal(t, openai.ChatMessageRoleSystem, first.Messages[0].Role)
	require.Contains(t, first.Messages[0].Content, "ISSDC")
	require.Contains(t, first.Messages[1].Content, "### Current Question:\nWhere did Chandrayaan-3 land?")

	mem := store.Memory(ctx, "s1")
	require.Equal(t, "Where did Chandrayaan-3 land?", mem.LastQuestion)
	require.Equal(t, ans.Context, mem.LastContext)

	_, err = a.Respond(ctx, "What does Aditya-L1 study?", "s1")
	require.NoError(t, err)
	second := llmClient.requests[1].Messages[1].Content
	require.Contains(t, second, "### Previous Question:\nWhere did Chandrayaan-3 land?")
	require.Contains(t, second, "lunar south pole")
	require.Contains(t, second, "solar observatory")

	// other sessions start fresh
	require.Equal(t, history.Memory{}, store.Memory(ctx, "s2"))
}

func TestRespond_LLMErrorBecomesAnswer(t *testing.T) {
	a, _ := newTestAgent(t, &mockLLM{err: context.DeadlineExceeded}, nil)

	ans, err := a.Respond(context.Background(), "Tell me about Aditya-L1", "user_1")
	require.NoError(t, err)
	require.Equal(t, "⚠️ Error: "+context.DeadlineExceeded.Error(), ans.Text)
}

func TestRespond_EmptyLLMContent(t *testing.T) {
	a, _ := newTestAgent(t, &mockLLM{calls: []openai.ChatCompletionResponse{reply("   ")}}, nil)

	ans, err := a.Respond(context.Background(), "Tell me about Aditya-L1", "user_1")
	require.NoError(t, err)
	require.Equal(t, MissingReply, ans.Text)

	a, _ = newTestAgent(t, &mockLLM{calls: []openai.ChatCompletionResponse{{}}}, nil)
	ans, err = a.Respond(context.Background(), "Tell me about Aditya-L1", "user_1")
	require.NoError(t, err)
	require.Equal(t, MissingReply, ans.Text)
}

func TestRespond_RetrievalError(t *testing.T) {
	a := New(&mockLLM{}, failingRetriever{}, history.Open(""), testCfg)

	_, err := a.Respond(context.Background(), "Tell me about Aditya-L1", "user_1")
	require.EqualError(t, err, "index unavailable")
}

func TestRespond_EmptyQuestion(t *testing.T) {
	a, _ := newTestAgent(t, &mockLLM{}, nil)

	_, err := a.Respond(context.Background(), " \t ", "user_1")
	require.ErrorIs(t, err, errs.ErrEmptyMessage)
}

func TestLookup(t *testing.T) {
	a, _ := newTestAgent(t, &mockLLM{}, nil)
	ctx := context.Background()

	ans, err := a.Lookup(ctx, "hey", 0.5)
	require.NoError(t, err)
	require.Equal(t, ShortGreetingReply, ans.Text)

	ans, err = a.Lookup(ctx, "bye", 0.5)
	require.NoError(t, err)
	require.Equal(t, FarewellReply, ans.Text)

	ans, err = a.Lookup(ctx, "solar observatory Aditya-L1", 0)
	require.NoError(t, err)
	require.Contains(t, ans.Text, "Aditya-L1")
	require.Equal(t, ans.Text, ans.Context)

	// the terms peak in different missions, so neither scores near 1
	ans, err = a.Lookup(ctx, "lunar solar", 0.9)
	require.NoError(t, err)
	require.Equal(t, NoMatchReply, ans.Text)
	require.Equal(t, NoContext, ans.Context)

	ans, err = a.Lookup(ctx, "zeppelin", 0)
	require.NoError(t, err)
	require.Equal(t, NoMatchReply, ans.Text)

	_, err = New(&mockLLM{}, failingRetriever{}, history.Open(""), testCfg).Lookup(ctx, "Aditya-L1", 0)
	require.EqualError(t, err, "index unavailable")
}

// TestLookup_MissionCorpus runs /chat lookups against the shipped corpus at
// the default threshold.
func TestLookup_MissionCorpus(t *testing.T) {
	kb, err := knowledge.Load("../../mission_data.json", "")
	require.NoError(t, err)
	defer kb.Close()
	a := New(&mockLLM{}, kb, history.Open(""), testCfg)
	ctx := context.Background()

	for query, want := range map[string]string{
		"chandrayaan":                  "Chandrayaan",
		"tell me about chandrayaan":    "Chandrayaan",
		"What is AstroSat?":            "AstroSat",
		"Mangalyaan":                   "Mars Orbiter Mission",
		"aditya l1 solar corona study": "Aditya-L1",
	} {
		ans, err := a.Lookup(ctx, query, config.DefaultMinScore)
		require.NoError(t, err, query)
		require.Contains(t, ans.Text, want, query)
		require.Equal(t, ans.Text, ans.Context, query)
	}

	for _, query := range []string{"the", "what is it", "quasar zeppelin"} {
		ans, err := a.Lookup(ctx, query, config.DefaultMinScore)
		require.NoError(t, err, query)
		require.Equal(t, NoMatchReply, ans.Text, query)
	}
}

func TestRespond_NoSharedTermsSendsNoContext(t *testing.T) {
	llmClient := &mockLLM{calls: []openai.ChatCompletionResponse{reply("I don't know.")}}
	a, store := newTestAgent(t, llmClient, nil)
	ctx := context.Background()

	ans, err := a.Respond(ctx, "quasar zeppelin", "user_1")
	require.NoError(t, err)
	require.Equal(t, NoContext, ans.Context)
	require.Contains(t, llmClient.requests[0].Messages[1].Content, "### Context:\n"+NoContext+"\n")
	require.Empty(t, store.Memory(ctx, "user_1").LastContext)
}

func TestBuildPrompt_TruncatesContext(t *testing.T) {
	mem := history.Memory{LastContext: strings.Repeat("a", 500), LastQuestion: "previous?"}
	p := buildPrompt(mem, strings.Repeat("b", 500), "current?", 600)

	require.Contains(t, p, "### Previous Question:\nprevious?")
	require.Contains(t, p, "### Current Question:\ncurrent?")
	// 500 a's + "\n\n" + 98 b's
	require.Contains(t, p, strings.Repeat("a", 500)+"\n\n"+strings.Repeat("b", 98)+"\n\n### Previous")
}

func TestTruncate_Runes(t *testing.T) {
	require.Equal(t, "🚀🛰", truncate("🚀🛰️❓", 2))
	require.Equal(t, "short", truncate("short", 10))
}
