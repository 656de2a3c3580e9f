// Package orchestration runs a headless child-agent binary inside a
// prepared workspace and aggregates its streamed output into one result
// (spec §4.2). Grounded on internal/captain/captain.go's executeSubagent
// for the exec.Command/argument-building idiom, and on
// original_source/vibe-ensemble-core/src/orchestration/executor.go's
// HeadlessClaudeExecutor for the event schema and aggregation rules,
// translated from tokio::select!-driven async streams to goroutines
// reading concurrently from StdoutPipe/StderrPipe.
package orchestration

import (
	"encoding/json"
	"time"
)

// WorkspaceConfig identifies the workspace a child process runs in
// (spec §4.2's "workspace configuration").
type WorkspaceConfig struct {
	ProjectPath   string
	WorkspaceID   string
	WorkspaceName string
	TemplateName  string
}

// ExecConfig tunes one execution (spec §4.2's contract).
type ExecConfig struct {
	Timeout      time.Duration
	Verbose      bool
	ExtraEnv     map[string]string
	OutputFormat string // defaults to "stream-json"
}

// EventType is the closed, tagged union stdout lines decode into.
type EventType string

const (
	EventSystem    EventType = "system"
	EventAssistant EventType = "assistant"
	EventResult    EventType = "result"
	EventUnknown   EventType = "unknown"
)

// UsageStats mirrors the child's per-message or aggregate token usage.
type UsageStats struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (u UsageStats) add(o UsageStats) UsageStats {
	return UsageStats{InputTokens: u.InputTokens + o.InputTokens, OutputTokens: u.OutputTokens + o.OutputTokens}
}

// MessageContent is one block of an assistant message's content array.
type MessageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AssistantMessage is the nested "message" object of an assistant event.
type AssistantMessage struct {
	Model   string           `json:"model"`
	Content []MessageContent `json:"content"`
	Usage   UsageStats       `json:"usage"`
}

// Event is one parsed stdout line, tagged by Type. Fields outside a
// given Type's relevant subset are left zero. Lines that parse as JSON
// but carry an unrecognized type are EventUnknown with Raw preserved
// (spec §4.2); lines that fail JSON parsing abort the stream entirely.
type Event struct {
	Type EventType

	// system
	Tools []string
	Model string

	// assistant
	Message AssistantMessage

	// result
	IsError           bool
	DurationMS        int64
	NumTurns          int
	ResultText        string
	CostUSD           float64
	Usage             UsageStats
	PermissionDenials []string

	Raw json.RawMessage
}

// ExecutionResult aggregates every event from one execution (spec §4.2's
// "Result aggregation").
type ExecutionResult struct {
	Success      bool
	Content      string
	Usage        UsageStats
	CostUSD      float64
	Events       []Event
	Duration     time.Duration
	ExitCode     int
	ErrorMessage string
}
