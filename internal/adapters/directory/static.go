// Package directory resolves agent ids to contact details.
package directory

import "github.com/example/claimdesk/internal/ports/secondary"

// Static is an AgentDirectory loaded once from configuration.
type Static struct {
	agents     map[string]secondary.Contact
	management []secondary.Contact
}

// NewStatic builds a directory. Later duplicates of an agent id win.
func NewStatic(agents, management []secondary.Contact) *Static {
	byID := make(map[string]secondary.Contact, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}
	return &Static{agents: byID, management: append([]secondary.Contact(nil), management...)}
}

var _ secondary.AgentDirectory = (*Static)(nil)

func (s *Static) Lookup(agentID string) (secondary.Contact, bool) {
	c, ok := s.agents[agentID]
	return c, ok
}

func (s *Static) Management() []secondary.Contact {
	return append([]secondary.Contact(nil), s.management...)
}
