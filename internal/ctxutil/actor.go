// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// AgentKey is the context key for the acting agent's ID.
// Exported so it can be used consistently across packages.
type AgentKey struct{}

// WithAgentID returns a context with the agent ID embedded.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentKey{}, agentID)
}

// AgentFromContext returns the agent ID from context, or empty string if not set.
func AgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(AgentKey{}).(string); ok {
		return v
	}
	return ""
}
