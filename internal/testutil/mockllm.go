package testutil

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM provides deterministic model responses for testing.
// It matches registered patterns against the system prompt and the last
// user message, and returns the corresponding response, optionally
// requesting tool calls first. Matching on the system prompt lets tests
// give different rules to agents that share one user message.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu        sync.Mutex
	responses []mockRule
	fallback  string
	calls     []MockCall
}

type mockRule struct {
	pattern  string            // substring match in system prompt or user message
	response string            // text response
	tools    []*ai.ToolRequest // tool calls to request first (nil = text only)
}

// MockCall records a single call to the mock model.
type MockCall struct {
	UserMessage string // last user message text
	Response    string // response text returned
	ToolPayload string // JSON of the latest tool response visible to the model, "" if none
}

// NewMockLLM creates a mock model with the given fallback response.
// The fallback is returned when no pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a pattern-response pair.
// When the system prompt or the user message contains the pattern
// (case-insensitive), the response is returned. Patterns are checked in
// registration order; first match wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// AddToolResponse registers a pattern that first requests the given tool
// calls and, once their results come back, answers with textResponse.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, textResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockRule{
		pattern:  strings.ToLower(pattern),
		response: textResponse,
		tools:    tools,
	})
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears all recorded calls (keeps registered responses).
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// RegisterModel registers the mock as a Genkit model and returns a
// reference. The model name will be "mock/test-model".
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "mock/test-model", &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

// generate is the Genkit model function.
func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText, systemText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}
	for _, msg := range req.Messages {
		if msg.Role == ai.RoleSystem {
			systemText += msg.Text() + "\n"
		}
	}

	// A trailing tool message means the requested tools already ran; the
	// next response must be text, or the generate loop would spin forever.
	toolsAnswered := false
	toolPayload := ""
	if last := lastMessage(req.Messages); last != nil && last.Role == ai.RoleTool {
		toolsAnswered = true
		toolPayload = toolResponseJSON(last)
	}

	m.mu.Lock()
	var matched *mockRule
	lower := strings.ToLower(systemText + userText)
	for i := range m.responses {
		if strings.Contains(lower, m.responses[i].pattern) {
			matched = &m.responses[i]
			break
		}
	}

	responseText := m.fallback
	if matched != nil {
		responseText = matched.response
	}

	m.calls = append(m.calls, MockCall{
		UserMessage: userText,
		Response:    responseText,
		ToolPayload: toolPayload,
	})
	m.mu.Unlock()

	var parts []*ai.Part
	if matched != nil && len(matched.tools) > 0 && !toolsAnswered {
		for _, tr := range matched.tools {
			parts = append(parts, &ai.Part{
				Kind:        ai.PartToolRequest,
				ToolRequest: tr,
			})
		}
	} else {
		// Stream only final text, the way a real model streams its answer.
		if cb != nil {
			_ = cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(responseText)},
			})
		}
		parts = append(parts, ai.NewTextPart(responseText))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}

func lastMessage(messages []*ai.Message) *ai.Message {
	if len(messages) == 0 {
		return nil
	}
	return messages[len(messages)-1]
}

// toolResponseJSON renders the outputs of a tool message for assertions.
func toolResponseJSON(msg *ai.Message) string {
	var outputs []any
	for _, p := range msg.Content {
		if p.ToolResponse != nil {
			outputs = append(outputs, p.ToolResponse.Output)
		}
	}
	if len(outputs) == 0 {
		return ""
	}
	raw, err := json.Marshal(outputs)
	if err != nil {
		return ""
	}
	return string(raw)
}
