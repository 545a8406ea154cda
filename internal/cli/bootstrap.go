// Package cli provides CLI commands for claimdesk.
package cli

import (
	"context"
	"os"

	"github.com/example/claimdesk/internal/ctxutil"
)

// EnvAgent names the acting agent when --agent is not given.
const EnvAgent = "CLAIMDESK_AGENT"

// globalAgentID stores the acting agent for the current CLI invocation.
// Set once at startup by SetAgent().
var globalAgentID string

// SetAgent stores the acting agent, falling back to $CLAIMDESK_AGENT.
// Should be called once at CLI startup in PersistentPreRun.
func SetAgent(flagValue string) {
	if flagValue != "" {
		globalAgentID = flagValue
		return
	}
	globalAgentID = os.Getenv(EnvAgent)
}

// GetAgentID returns the stored agent ID from CLI startup.
func GetAgentID() string {
	return globalAgentID
}

// NewContext creates a context.Background() with the acting agent embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() context.Context {
	ctx := context.Background()
	if globalAgentID != "" {
		return ctxutil.WithAgentID(ctx, globalAgentID)
	}
	return ctx
}
