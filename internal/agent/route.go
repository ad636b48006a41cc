package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// routeToolName is the tool the router calls to hand a conversation off.
const routeToolName = "route"

// DestinationTicketAssistant is the specialist that owns the ticket tools.
const DestinationTicketAssistant = "ticket_assistant"

// routeDestinations is the closed set of specialists the router may pick.
// Adding a destination means adding it here and teaching the router prompt
// about it.
var routeDestinations = map[string]string{
	DestinationTicketAssistant: "looking up, listing, creating and updating support tickets",
}

// RouteInput is the argument schema the model fills when routing.
type RouteInput struct {
	Destination string `json:"destination" jsonschema:"description=Name of the specialist assistant to hand the conversation to."`
	Reason      string `json:"reason,omitempty" jsonschema:"description=Short explanation of why this specialist fits the user's request."`
}

// RouteResult tells the model whether the handoff was accepted.
type RouteResult struct {
	Accepted    bool   `json:"accepted"`
	Destination string `json:"destination,omitempty"`
	Error       string `json:"error,omitempty"`
}

// handoff collects the routing decision made inside a generate loop.
// The first accepted destination wins; later route calls in the same turn
// are ignored.
type handoff struct {
	mu          sync.Mutex
	destination string
	reason      string
}

func (h *handoff) record(destination, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destination == "" {
		h.destination = destination
		h.reason = reason
	}
}

func (h *handoff) decision() (destination, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destination, h.reason
}

type handoffKey struct{}

// withHandoff attaches the per-turn handoff sink to the context. The route
// tool is registered once per Genkit instance, so request-scoped state has
// to travel on the context rather than on the tool itself.
func withHandoff(ctx context.Context, h *handoff) context.Context {
	return context.WithValue(ctx, handoffKey{}, h)
}

func handoffFrom(ctx context.Context) *handoff {
	h, _ := ctx.Value(handoffKey{}).(*handoff)
	return h
}

// registerRouteTool defines the route tool on g, or returns the existing
// definition when it is already registered.
func registerRouteTool(g *genkit.Genkit) ai.ToolRef {
	if existing := genkit.LookupTool(g, routeToolName); existing != nil {
		return existing
	}
	return genkit.DefineTool(g, routeToolName,
		"Hand the conversation to a specialized assistant. Call this when the user's request belongs to one of the listed destinations.",
		func(toolCtx *ai.ToolContext, input RouteInput) (RouteResult, error) {
			sink := handoffFrom(toolCtx.Context)
			if sink == nil {
				return RouteResult{}, errors.New("route called outside a conversation turn")
			}
			if _, ok := routeDestinations[input.Destination]; !ok {
				return RouteResult{
					Accepted: false,
					Error: fmt.Sprintf("unknown destination %q, valid destinations: %s",
						input.Destination, strings.Join(destinationNames(), ", ")),
				}, nil
			}
			sink.record(input.Destination, input.Reason)
			return RouteResult{Accepted: true, Destination: input.Destination}, nil
		})
}

func destinationNames() []string {
	names := make([]string, 0, len(routeDestinations))
	for name := range routeDestinations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
