package tools

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/juan-s-cruz/ai-my-tickets/internal/log"
)

func TestRegisterDefinesAllTools(t *testing.T) {
	g := genkit.Init(context.Background())

	h, err := NewHandler(&stubAPI{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	if err := Register(g, h); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, name := range ToolNames() {
		if tool := genkit.LookupTool(g, name); tool == nil {
			t.Errorf("tool %q not registered", name)
		}
	}

	if refs := Refs(g); len(refs) != len(ToolNames()) {
		t.Errorf("Refs() returned %d tools, want %d", len(refs), len(ToolNames()))
	}
}

func TestRegisterValidation(t *testing.T) {
	g := genkit.Init(context.Background())

	h, err := NewHandler(&stubAPI{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	if err := Register(nil, h); err == nil {
		t.Error("Register(nil, h) error = nil, want error")
	}
	if err := Register(g, nil); err == nil {
		t.Error("Register(g, nil) error = nil, want error")
	}
}
