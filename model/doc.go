// Package model defines the unified model backend contract consumed by the
// orchestrator, plus a scriptable in-memory mock. Vendor adapters live in the
// openai and anthropic subpackages; they translate the normalized
// Request/Response structures into provider wire formats and back so
// downstream logic needs no per-provider branching.
package model
