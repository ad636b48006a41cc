package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/genkit"
)

func TestHandoffFirstDecisionWins(t *testing.T) {
	t.Parallel()

	h := &handoff{}
	h.record(DestinationTicketAssistant, "ticket lookup")
	h.record("other_assistant", "should be ignored")

	dest, reason := h.decision()
	if dest != DestinationTicketAssistant {
		t.Errorf("destination = %q, want %q", dest, DestinationTicketAssistant)
	}
	if reason != "ticket lookup" {
		t.Errorf("reason = %q, want the first reason", reason)
	}
}

func TestHandoffConcurrentRecords(t *testing.T) {
	t.Parallel()

	h := &handoff{}
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.record(DestinationTicketAssistant, "race")
		}()
	}
	wg.Wait()

	if dest, _ := h.decision(); dest != DestinationTicketAssistant {
		t.Errorf("destination = %q after concurrent records", dest)
	}
}

func TestHandoffContextPlumbing(t *testing.T) {
	t.Parallel()

	if got := handoffFrom(context.Background()); got != nil {
		t.Errorf("handoffFrom(background) = %v, want nil", got)
	}

	h := &handoff{}
	ctx := withHandoff(context.Background(), h)
	if got := handoffFrom(ctx); got != h {
		t.Error("handoffFrom should return the sink attached with withHandoff")
	}
}

func TestRegisterRouteToolIsIdempotent(t *testing.T) {
	g := genkit.Init(context.Background())

	first := registerRouteTool(g)
	if first == nil {
		t.Fatal("registerRouteTool returned nil")
	}
	// Registering again must reuse the existing definition, not panic.
	second := registerRouteTool(g)
	if second == nil {
		t.Fatal("second registration returned nil")
	}
	if first.Name() != routeToolName || second.Name() != routeToolName {
		t.Errorf("tool names = %q, %q, want %q", first.Name(), second.Name(), routeToolName)
	}
}

func TestDestinationNames(t *testing.T) {
	t.Parallel()

	names := destinationNames()
	if len(names) == 0 {
		t.Fatal("destination set must not be empty")
	}
	found := false
	for _, name := range names {
		if name == DestinationTicketAssistant {
			found = true
		}
	}
	if !found {
		t.Errorf("destinations %v missing %q", names, DestinationTicketAssistant)
	}
}
