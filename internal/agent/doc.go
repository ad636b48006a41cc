// Package agent implements the conversational layer on top of the ticket
// tools: a router that either answers directly or hands the conversation to
// the ticket specialist through the route tool, and the specialist itself,
// which runs the multi-turn tool loop against the ticketing backend.
//
// The package holds no global state. [New] wires an [Agent] from explicit
// dependencies, and [Agent.DefineFlow] produces the Genkit streaming flow
// the HTTP layer serves. Model calls go through a rate limiter and a bounded
// retry loop so transient provider failures do not surface to the user.
package agent
