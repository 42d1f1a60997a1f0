package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qmuntal/stateless"
	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"

	"github.com/comigor/astro-go/internal/config"
	"github.com/comigor/astro-go/internal/errs"
	"github.com/comigor/astro-go/internal/history"
	"github.com/comigor/astro-go/internal/knowledge"
	"github.com/comigor/astro-go/internal/llm"
	"github.com/comigor/astro-go/internal/logger"
)

// FSMState is a step of answering one question.
type FSMState string

const (
	StateIdle        FSMState = "Idle"
	StateClassifying FSMState = "Classifying"
	StateGreeting    FSMState = "Greeting"
	StateFarewell    FSMState = "Farewell"
	StateRetrieving  FSMState = "Retrieving"
	StateSummarizing FSMState = "Summarizing"
	StateDone        FSMState = "Done"  // Terminal: successful completion
	StateError       FSMState = "Error" // Terminal: error state
)

// FSMTrigger moves the FSM between states.
type FSMTrigger string

const (
	TriggerProcessInput  FSMTrigger = "ProcessInput"
	TriggerGreet         FSMTrigger = "Greet"
	TriggerFarewell      FSMTrigger = "Farewell"
	TriggerAsk           FSMTrigger = "Ask"
	TriggerRetrieved     FSMTrigger = "Retrieved"
	TriggerAnswered      FSMTrigger = "Answered"
	TriggerErrorOccurred FSMTrigger = "ErrorOccurred"
)

// Retriever finds mission text for a query.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]knowledge.Hit, error)
	Best(ctx context.Context, query string) (knowledge.Hit, error)
	GreetingReply(query string) (string, bool)
}

// Store keeps per-session memory and the message log.
type Store interface {
	Memory(ctx context.Context, sessionID string) history.Memory
	SaveMemory(ctx context.Context, sessionID string, m history.Memory)
	SaveMessage(ctx context.Context, msg history.Message)
}

// Answer is the agent's reply and the mission context it was built from.
type Answer struct {
	Text    string
	Context string
}

// Agent answers mission questions: greetings and farewells are canned,
// anything else is retrieved from the knowledge base and summarized by the LLM.
type Agent struct {
	llmClient    llm.Client
	cfg          config.LLMConfig
	kb           Retriever
	store        Store
	contextLimit int
	memoryLimit  int
	systemPrompt string
}

// New creates a new agent.
func New(llmClient llm.Client, kb Retriever, store Store, appCfg config.Config) *Agent {
	systemPrompt := defaultSystemPrompt
	if appCfg.LLM.SystemPrompt != "" {
		systemPrompt = appCfg.LLM.SystemPrompt
	}
	return &Agent{
		llmClient:    llmClient,
		cfg:          appCfg.LLM,
		kb:           kb,
		store:        store,
		contextLimit: appCfg.Knowledge.ContextLimit,
		memoryLimit:  appCfg.Knowledge.MemoryLimit,
		systemPrompt: systemPrompt,
	}
}

// Respond answers question within the given session, remembering the
// retrieved context and the question for the next turn. It drives a Finite State Machine through classification, retrieval and summarization.
func (a *Agent) Respond(ctx context.Context, question, sessionID string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, errs.ErrEmptyMessage
	}

	// FSM context data
	type fsmContext struct {
		query     string
		retrieved string
		answer    Answer
		lastError error
	}
	fsmCtx := &fsmContext{query: knowledge.Normalize(question)}
	log := logger.FromContext(ctx).With("session", sessionID)

	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(TriggerProcessInput, StateClassifying)

	// State: Classifying
	// Action: Decide between canned replies and retrieval.
	fsm.Configure(StateClassifying).
		OnEntry(func(ctx context.Context, args ...any) error {
			intent := knowledge.Classify(question)
			log.Debug("FSM: Entering StateClassifying", "intent", intent.String())
			switch intent {
			case knowledge.IntentGreeting:
				return fsm.FireCtx(ctx, TriggerGreet)
			case knowledge.IntentFarewell:
				return fsm.FireCtx(ctx, TriggerFarewell)
			default:
				return fsm.FireCtx(ctx, TriggerAsk)
			}
		}).
		Permit(TriggerGreet, StateGreeting).
		Permit(TriggerFarewell, StateFarewell).
		Permit(TriggerAsk, StateRetrieving)

	fsm.Configure(StateGreeting).
		OnEntry(func(ctx context.Context, args ...any) error {
			text := GreetingReply
			if custom, ok := a.kb.GreetingReply(question); ok {
				text = custom
			}
			fsmCtx.answer = Answer{Text: text, Context: NoContext}
			return fsm.FireCtx(ctx, TriggerAnswered)
		}).
		Permit(TriggerAnswered, StateDone)

	fsm.Configure(StateFarewell).
		OnEntry(func(ctx context.Context, args ...any) error {
			fsmCtx.answer = Answer{Text: FarewellReply, Context: NoContext}
			return fsm.FireCtx(ctx, TriggerAnswered)
		}).
		Permit(TriggerAnswered, StateDone)

	// State: Retrieving
	// Action: Pull the best matching mission text.
	fsm.Configure(StateRetrieving).
		OnEntry(func(ctx context.Context, args ...any) error {
			hits, err := a.kb.Search(ctx, fsmCtx.query, 1)
			if err != nil {
				log.Error("retrieval failed", "error", err)
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			details := lo.Map(hits, func(h knowledge.Hit, _ int) string { return h.Details })
			fsmCtx.retrieved = truncate(strings.TrimSpace(strings.Join(details, "\n\n")), a.contextLimit)
			log.Debug("FSM: retrieved context", "hits", len(hits), "runes", len([]rune(fsmCtx.retrieved)))
			return fsm.FireCtx(ctx, TriggerRetrieved)
		}).
		Permit(TriggerRetrieved, StateSummarizing).
		Permit(TriggerErrorOccurred, StateError)

	// State: Summarizing
	// Action: Ask the LLM to answer from the retrieved context. LLM failures
	// are reported to the user as the answer, not as an error.
	fsm.Configure(StateSummarizing).
		OnEntry(func(ctx context.Context, args ...any) error {
			// no shared terms: the model still gets an explicit empty context
			shown := lo.Ternary(fsmCtx.retrieved == "", NoContext, fsmCtx.retrieved)
			mem := a.store.Memory(ctx, sessionID)
			text := a.summarize(ctx, mem, shown, question)
			a.store.SaveMemory(ctx, sessionID, history.Memory{LastContext: fsmCtx.retrieved, LastQuestion: question})
			fsmCtx.answer = Answer{Text: text, Context: shown}
			return fsm.FireCtx(ctx, TriggerAnswered)
		}).
		Permit(TriggerAnswered, StateDone)

	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		log.Error("FSM fire error", "error", err)
		if fsmCtx.lastError != nil {
			return Answer{}, fsmCtx.lastError
		}
		return Answer{}, fmt.Errorf("FSM error: %w", err)
	}

	currentState, err := fsm.State(ctx)
	if err != nil {
		return Answer{}, fmt.Errorf("FSM internal error: %w", err)
	}

	switch currentState {
	case StateDone:
		a.record(ctx, sessionID, question, fsmCtx.answer.Text)
		return fsmCtx.answer, nil
	case StateError:
		if fsmCtx.lastError != nil {
			return Answer{}, fsmCtx.lastError
		}
		return Answer{}, errors.New("FSM ended in StateError without a specific error")
	default:
		return Answer{}, fmt.Errorf("FSM ended in an unexpected state: %v", currentState)
	}
}

func (a *Agent) summarize(ctx context.Context, mem history.Memory, retrieved, question string) string {
	resp, err := a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(mem, retrieved, question, a.memoryLimit)},
		},
	})
	if err != nil {
		logger.L.Error("LLM call failed", "error", err)
		return ErrorReply(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		logger.L.Warn("LLM returned no content")
		return MissingReply
	}
	return resp.Choices[0].Message.Content
}

func (a *Agent) record(ctx context.Context, sessionID, question, answer string) {
	a.store.SaveMessage(ctx, history.Message{SessionID: sessionID, Role: history.RoleUser, Content: question})
	a.store.SaveMessage(ctx, history.Message{SessionID: sessionID, Role: history.RoleAssistant, Content: answer})
}

// Lookup answers without memory or LLM: the best matching mission text is
// returned verbatim when its similarity reaches minScore.
func (a *Agent) Lookup(ctx context.Context, question string, minScore float64) (Answer, error) {
	switch knowledge.Classify(question) {
	case knowledge.IntentGreeting:
		return Answer{Text: ShortGreetingReply, Context: NoContext}, nil
	case knowledge.IntentFarewell:
		return Answer{Text: FarewellReply, Context: NoContext}, nil
	}

	hit, err := a.kb.Best(ctx, question)
	switch {
	case errors.Is(err, errs.ErrNoMatch):
		return Answer{Text: NoMatchReply, Context: NoContext}, nil
	case err != nil:
		return Answer{}, err
	case hit.Similarity < minScore:
		logger.L.Debug("no mission above threshold", "similarity", hit.Similarity, "min_score", minScore)
		return Answer{Text: NoMatchReply, Context: NoContext}, nil
	}
	return Answer{Text: hit.Details, Context: hit.Details}, nil
}
