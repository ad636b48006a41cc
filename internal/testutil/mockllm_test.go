package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/go-cmp/cmp"
)

func userRequest(text string) *ai.ModelRequest {
	return &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart(text))},
	}
}

func TestMockLLM_PatternMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pattern  string
		response string
		input    string
		want     string
	}{
		{
			name:     "exact match",
			pattern:  "hello",
			response: "Hi there!",
			input:    "hello",
			want:     "Hi there!",
		},
		{
			name:     "substring match",
			pattern:  "vpn",
			response: "Let me check the VPN ticket.",
			input:    "my vpn keeps dropping",
			want:     "Let me check the VPN ticket.",
		},
		{
			name:     "case insensitive",
			pattern:  "PRINTER",
			response: "Printer advice.",
			input:    "the printer is on fire",
			want:     "Printer advice.",
		},
		{
			name:     "no match falls back",
			pattern:  "unrelated",
			response: "never seen",
			input:    "tell me a joke",
			want:     "fallback answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMockLLM("fallback answer")
			m.AddResponse(tt.pattern, tt.response)

			resp, err := m.generate(context.Background(), userRequest(tt.input), nil)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if got := resp.Message.Text(); got != tt.want {
				t.Errorf("response = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMockLLM_SystemPromptMatching(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("fallback")
	m.AddResponse("you are the router", "router speaking")
	m.AddResponse("you are the specialist", "specialist speaking")

	req := &ai.ModelRequest{Messages: []*ai.Message{
		{Role: ai.RoleSystem, Content: []*ai.Part{ai.NewTextPart("You are the specialist for widgets.")}},
		ai.NewUserMessage(ai.NewTextPart("help me")),
	}}
	resp, err := m.generate(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Message.Text(); got != "specialist speaking" {
		t.Errorf("response = %q, want the system-matched rule", got)
	}
}

func TestMockLLM_FirstMatchWins(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("fallback")
	m.AddResponse("ticket", "first rule")
	m.AddResponse("ticket 5", "second rule")

	resp, err := m.generate(context.Background(), userRequest("show me ticket 5"), nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Message.Text(); got != "first rule" {
		t.Errorf("response = %q, want %q", got, "first rule")
	}
}

func TestMockLLM_CallRecording(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("fallback")
	m.AddResponse("vpn", "VPN answer")

	for _, text := range []string{"vpn down", "something else"} {
		if _, err := m.generate(context.Background(), userRequest(text), nil); err != nil {
			t.Fatalf("generate(%q): %v", text, err)
		}
	}

	want := []MockCall{
		{UserMessage: "vpn down", Response: "VPN answer"},
		{UserMessage: "something else", Response: "fallback"},
	}
	if diff := cmp.Diff(want, m.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	m.Reset()
	if got := len(m.Calls()); got != 0 {
		t.Errorf("calls after Reset = %d, want 0", got)
	}
}

func TestMockLLM_Streaming(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("fallback")
	m.AddResponse("hello", "streamed reply")

	var chunks []string
	cb := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		for _, p := range chunk.Content {
			chunks = append(chunks, p.Text)
		}
		return nil
	}

	resp, err := m.generate(context.Background(), userRequest("hello"), cb)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := strings.Join(chunks, ""); got != "streamed reply" {
		t.Errorf("streamed text = %q, want %q", got, "streamed reply")
	}
	if got := resp.Message.Text(); got != "streamed reply" {
		t.Errorf("final text = %q, want %q", got, "streamed reply")
	}
}

func TestMockLLM_ToolRound(t *testing.T) {
	t.Parallel()

	m := NewMockLLM("fallback")
	m.AddToolResponse("ticket 5", []*ai.ToolRequest{{
		Name:  "fetchTicket",
		Input: map[string]any{"ticket_id": "5"},
	}}, "Ticket 5 is still open.")

	// Round one: the model answers the user message with a tool request.
	first := userRequest("what is the status of ticket 5?")
	resp, err := m.generate(context.Background(), first, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	var toolReqs []*ai.ToolRequest
	for _, p := range resp.Message.Content {
		if p.ToolRequest != nil {
			toolReqs = append(toolReqs, p.ToolRequest)
		}
	}
	if len(toolReqs) != 1 {
		t.Fatalf("expected 1 tool request, got %d", len(toolReqs))
	}
	if toolReqs[0].Name != "fetchTicket" {
		t.Errorf("tool name = %q, want fetchTicket", toolReqs[0].Name)
	}

	// Round two: the runner appends the tool output; now the model must
	// produce text or the generate loop would never terminate.
	second := &ai.ModelRequest{Messages: append(first.Messages,
		resp.Message,
		&ai.Message{
			Role: ai.RoleTool,
			Content: []*ai.Part{{
				Kind: ai.PartToolResponse,
				ToolResponse: &ai.ToolResponse{
					Name:   "fetchTicket",
					Output: map[string]any{"ok": true, "status": 200},
				},
			}},
		},
	)}
	resp, err = m.generate(context.Background(), second, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := resp.Message.Text(); got != "Ticket 5 is still open." {
		t.Errorf("final text = %q, want the configured answer", got)
	}

	calls := m.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(calls))
	}
	if calls[0].ToolPayload != "" {
		t.Errorf("first call tool payload = %q, want empty", calls[0].ToolPayload)
	}
	if !strings.Contains(calls[1].ToolPayload, `"ok":true`) {
		t.Errorf("second call tool payload = %q, want the tool output JSON", calls[1].ToolPayload)
	}
}
