package mcpserver

import (
	"fmt"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// staticResources are always advertised (spec §4.1), independent of
// whether an agent service is installed.
var staticResources = []map[string]any{
	{"uri": "vibe://agents", "name": "Agents", "description": "Registered coordination agents"},
	{"uri": "vibe://issues", "name": "Issues", "description": "Tracked issues"},
	{"uri": "vibe://knowledge", "name": "Knowledge", "description": "Shared knowledge base"},
}

// resourcesListResult builds the resource listing: static entries plus,
// when an agent service is installed, dynamic entries derived from live
// agent counts (online, coordinators, workers).
func (s *Server) resourcesListResult() []map[string]any {
	out := make([]map[string]any, len(staticResources))
	copy(out, staticResources)

	if s.agents == nil {
		return out
	}

	agents, err := s.agents.List()
	if err != nil {
		return out
	}

	online, coordinators, workers := 0, 0, 0
	for _, a := range agents {
		if a.Status != domain.AgentStatusOffline {
			online++
		}
		switch a.Kind {
		case domain.AgentKindCoordinator:
			coordinators++
		case domain.AgentKindWorker:
			workers++
		}
	}

	out = append(out,
		map[string]any{"uri": "vibe://agents/online", "name": "Online agents", "description": fmt.Sprintf("%d agents currently online", online)},
		map[string]any{"uri": "vibe://agents/coordinators", "name": "Coordinators", "description": fmt.Sprintf("%d coordinator agents", coordinators)},
		map[string]any{"uri": "vibe://agents/workers", "name": "Workers", "description": fmt.Sprintf("%d worker agents", workers)},
	)
	return out
}

// authorizedResourceURIs lists the resource URIs a newly registered agent
// may read (spec §4.1's agent/register response field).
func authorizedResourceURIs() []string {
	return []string{"vibe://agents", "vibe://issues", "vibe://knowledge"}
}
