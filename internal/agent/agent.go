package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
	"github.com/juan-s-cruz/ai-my-tickets/internal/session"
)

// FallbackResponse is returned when the model produces an empty answer.
const FallbackResponse = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// routerMaxTurns bounds the router round: one route call plus the closing
// acknowledgment.
const routerMaxTurns = 2

// Response is the complete result of one conversation turn.
type Response struct {
	FinalText   string // Final text shown to the user
	Destination string // Specialist that handled the turn, "" when the router answered directly
}

// StreamCallback is called for each chunk of the streamed answer.
// Return an error to abort the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config carries the agent's dependencies. All fields without a stated
// default are required.
type Config struct {
	Genkit   *genkit.Genkit
	Sessions *session.Store
	Logger   log.Logger

	// Tools are the pre-registered ticket tools handed to the specialist.
	Tools []ai.ToolRef

	// ModelName selects the model for both rounds, e.g. "googleai/gemini-2.5-flash".
	ModelName string

	// MaxTurns bounds the specialist's tool loop. Defaults to 5.
	MaxTurns int

	// Retry configures model call retries. Zero value uses DefaultRetryConfig.
	Retry RetryConfig

	// RateLimiter throttles model calls. Nil uses 10 req/s with burst 30.
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one specialist tool is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Agent is the two-stage conversational pipeline: a router decides whether
// to answer directly or hand off, and the ticket specialist runs the tool
// loop for ticket work.
//
// Agent is stateless between turns; conversation history lives in the
// session store. All configuration is captured at construction, so a single
// Agent is safe for concurrent use.
type Agent struct {
	g        *genkit.Genkit
	sessions *session.Store
	logger   log.Logger

	modelName string
	maxTurns  int
	retry     RetryConfig
	limiter   *rate.Limiter

	routeRef  ai.ToolRef
	toolRefs  []ai.ToolRef
	toolNames string // comma-separated, for logging
}

// New wires an Agent from explicit dependencies and registers the route
// tool on the Genkit instance.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		names[i] = t.Name()
	}

	a := &Agent{
		g:         cfg.Genkit,
		sessions:  cfg.Sessions,
		logger:    cfg.Logger,
		modelName: cfg.ModelName,
		maxTurns:  maxTurns,
		retry:     retry,
		limiter:   limiter,
		routeRef:  registerRouteTool(cfg.Genkit),
		toolRefs:  cfg.Tools,
		toolNames: strings.Join(names, ", "),
	}

	a.logger.Info("agent initialized",
		"model", a.modelName,
		"specialistTools", len(a.toolRefs),
		"maxTurns", a.maxTurns,
	)

	return a, nil
}

// Execute runs one conversation turn without streaming.
func (a *Agent) Execute(ctx context.Context, sessionID uuid.UUID, input string) (*Response, error) {
	return a.ExecuteStream(ctx, sessionID, input, nil)
}

// ExecuteStream runs one conversation turn. When callback is non-nil it
// receives the answer as it is generated; the full response is returned
// either way. The turn's user message and final answer are appended to the
// session history.
func (a *Agent) ExecuteStream(ctx context.Context, sessionID uuid.UUID, input string, callback StreamCallback) (*Response, error) {
	history, err := a.sessions.History(sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	messages := copyHistory(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	// Round one: the router either answers or calls route. The handoff sink
	// rides the context because the route tool is shared by every turn.
	sink := &handoff{}
	routerResp, err := a.generateWithRetry(withHandoff(ctx, sink), a.routerOpts(messages))
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	destination, reason := sink.decision()
	finalText := routerResp.Text()

	if destination != "" {
		a.logger.Debug("routing to specialist",
			"session_id", sessionID,
			"destination", destination,
			"reason", reason,
		)

		// Round two: the specialist answers with the ticket tools. The
		// router's acknowledgment text is dropped in favor of the real
		// answer.
		specialistResp, err := a.generateWithRetry(ctx, a.specialistOpts(messages, callback))
		if err != nil {
			return nil, fmt.Errorf("specialist %s: %w", destination, err)
		}
		finalText = specialistResp.Text()
	} else if callback != nil && finalText != "" {
		// Direct answers are generated unstreamed; replay the text as a
		// single chunk so callers see one uniform stream shape.
		err := callback(ctx, &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(finalText)}})
		if err != nil {
			return nil, fmt.Errorf("stream callback: %w", err)
		}
	}

	if strings.TrimSpace(finalText) == "" {
		a.logger.Warn("model returned an empty answer", "session_id", sessionID)
		finalText = FallbackResponse
	}

	appendErr := a.sessions.AppendMessages(sessionID,
		ai.NewUserMessage(ai.NewTextPart(input)),
		ai.NewModelMessage(ai.NewTextPart(finalText)),
	)
	if appendErr != nil {
		// The turn already produced an answer; losing history is not worth
		// failing the request over.
		a.logger.Error("appending turn to history", "session_id", sessionID, "error", appendErr)
	}

	return &Response{FinalText: finalText, Destination: destination}, nil
}

func (a *Agent) routerOpts(messages []*ai.Message) []ai.GenerateOption {
	return []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(routerSystemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(a.routeRef),
		ai.WithMaxTurns(routerMaxTurns),
	}
}

func (a *Agent) specialistOpts(messages []*ai.Message, callback StreamCallback) []ai.GenerateOption {
	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(specialistSystemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(ai.ModelStreamCallback(callback)))
	}
	return opts
}

// copyHistory copies the message structs and their part slices. Genkit's
// render step mutates msg.Content in place, so turns sharing history
// pointers would otherwise race. The parts themselves are never mutated and
// stay shared.
func copyHistory(msgs []*ai.Message) []*ai.Message {
	out := make([]*ai.Message, len(msgs))
	for i, m := range msgs {
		out[i] = &ai.Message{
			Role:     m.Role,
			Metadata: m.Metadata,
			Content:  append([]*ai.Part(nil), m.Content...),
		}
	}
	return out
}
