package mcpserver

// ToolDefinition describes one of the fixed coordination extension methods
// for advertisement over tools/list. Grounded on internal/mcp/tools.go's
// ToolDefinition/ParameterDef shape; this engine has no tools/call method
// (spec §4.1's dispatch table invokes the extensions directly), so unlike
// the teacher's registry these carry no Handler — they are descriptive only.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]ParameterDef
}

type ParameterDef struct {
	Type        string
	Description string
	Required    bool
}

// fixedTools is the static advertisement of this server's coordination
// extension methods, generalized from the teacher's dynamically registered
// ToolRegistry into the fixed list the spec names.
var fixedTools = []ToolDefinition{
	{
		Name:        "agent/register",
		Description: "Register an agent with the coordination server",
		Parameters: map[string]ParameterDef{
			"name":         {Type: "string", Description: "agent name", Required: true},
			"kind":         {Type: "string", Description: "Coordinator or Worker", Required: true},
			"capabilities": {Type: "array", Description: "capability tags", Required: false},
		},
	},
	{
		Name:        "agent/status",
		Description: "Fetch an agent's current status",
		Parameters: map[string]ParameterDef{
			"agent_id": {Type: "string", Description: "agent id", Required: true},
		},
	},
	{
		Name:        "issue/create",
		Description: "Create a new issue",
		Parameters: map[string]ParameterDef{
			"title":       {Type: "string", Description: "issue title", Required: true},
			"description": {Type: "string", Description: "issue description", Required: false},
			"priority":    {Type: "string", Description: "Low|Medium|High|Critical", Required: false},
		},
	},
	{
		Name:        "issue/list",
		Description: "List issues, optionally filtered by status",
		Parameters: map[string]ParameterDef{
			"status": {Type: "string", Description: "filter by status", Required: false},
		},
	},
	{
		Name:        "knowledge/query",
		Description: "Query knowledge entries visible to the caller",
		Parameters: map[string]ParameterDef{
			"kind": {Type: "string", Description: "filter by knowledge kind", Required: false},
			"tag":  {Type: "string", Description: "filter by tag", Required: false},
		},
	},
}

func toolsListResult() []map[string]any {
	out := make([]map[string]any, 0, len(fixedTools))
	for _, t := range fixedTools {
		props := make(map[string]any, len(t.Parameters))
		var required []string
		for name, def := range t.Parameters {
			props[name] = map[string]any{"type": def.Type, "description": def.Description}
			if def.Required {
				required = append(required, name)
			}
		}
		out = append(out, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		})
	}
	return out
}
