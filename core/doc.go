// Package core defines the shared data model of the Skycast orchestration
// engine: conversation messages and tool calls, sessions and their store
// contract, routing and execution results, moderation verdicts and the typed
// stream event union. It has no dependencies on the components that produce
// or consume these values, so every other package can import it freely.
package core
