package agent

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
)

// FlowName is the registered name of the chat flow in Genkit.
const FlowName = "support/chat"

// Input is the chat flow input.
type Input struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Output is the chat flow output.
type Output struct {
	Response    string `json:"response"`
	SessionID   string `json:"session_id"`
	Destination string `json:"destination,omitempty"`
}

// StreamChunk is one streamed fragment of the answer.
type StreamChunk struct {
	Delta string `json:"delta"`
}

// Flow is the chat flow type served by the HTTP layer.
type Flow = core.Flow[Input, Output, StreamChunk]

// DefineFlow registers the chat flow on g and returns it. Genkit panics on
// duplicate flow names, so call this once per Genkit instance and hand the
// returned flow to whoever serves it.
func (a *Agent) DefineFlow(g *genkit.Genkit) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			sessionID, err := uuid.Parse(input.SessionID)
			if err != nil {
				return Output{SessionID: input.SessionID}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
			}

			var callback StreamCallback
			if streamCb != nil {
				callback = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					for _, part := range chunk.Content {
						if part.Text == "" {
							continue
						}
						if err := streamCb(ctx, StreamChunk{Delta: part.Text}); err != nil {
							return err
						}
					}
					return nil
				}
			}

			resp, err := a.ExecuteStream(ctx, sessionID, input.Message, callback)
			if err != nil {
				return Output{SessionID: input.SessionID}, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
			}

			return Output{
				Response:    resp.FinalText,
				SessionID:   input.SessionID,
				Destination: resp.Destination,
			}, nil
		})
}
