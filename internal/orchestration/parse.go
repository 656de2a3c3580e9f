package orchestration

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
)

// streamLine is the envelope every stdout line decodes into before being
// narrowed to an Event by its "type" tag.
type streamLine struct {
	Type string `json:"type"`

	// system
	Tools []string `json:"tools"`
	Model string   `json:"model"`

	// assistant
	Message AssistantMessage `json:"message"`

	// result
	IsError           bool       `json:"is_error"`
	DurationMS        int64      `json:"duration_ms"`
	NumTurns          int        `json:"num_turns"`
	Result            string     `json:"result"`
	TotalCostUSD      float64    `json:"total_cost_usd"`
	Usage             UsageStats `json:"usage"`
	PermissionDenials []string   `json:"permission_denials"`
}

// parseEventLine parses one stdout line into an Event. A line that fails
// JSON parsing is a domain.KindParsing error (spec §4.2: "lines that fail
// JSON parsing abort the stream"); a line that parses but carries an
// unrecognized type becomes EventUnknown with Raw preserved.
func parseEventLine(line []byte) (Event, error) {
	var sl streamLine
	if err := json.Unmarshal(line, &sl); err != nil {
		return Event{}, domain.Wrap(domain.KindParsing, fmt.Sprintf("failed to parse stream event line %q", string(line)), err)
	}

	switch EventType(sl.Type) {
	case EventSystem:
		return Event{Type: EventSystem, Tools: sl.Tools, Model: sl.Model}, nil
	case EventAssistant:
		return Event{Type: EventAssistant, Message: sl.Message}, nil
	case EventResult:
		return Event{
			Type:              EventResult,
			IsError:           sl.IsError,
			DurationMS:        sl.DurationMS,
			NumTurns:          sl.NumTurns,
			ResultText:        sl.Result,
			CostUSD:           sl.TotalCostUSD,
			Usage:             sl.Usage,
			PermissionDenials: sl.PermissionDenials,
		}, nil
	default:
		return Event{Type: EventUnknown, Raw: append(json.RawMessage(nil), line...)}, nil
	}
}

// aggregate implements spec §4.2's "Result aggregation": final content is
// the latest assistant event's text, overridden by a non-empty result
// event's result string; usage sums across assistant events for tokens,
// cost comes from the result event; success requires a non-error result
// event, a clean exit, and no stderr-captured error (callers fold exit
// code and stderr in after this).
func aggregate(events []Event, duration time.Duration) *ExecutionResult {
	res := &ExecutionResult{Success: true, Events: events, Duration: duration}

	for _, e := range events {
		switch e.Type {
		case EventAssistant:
			if len(e.Message.Content) > 0 {
				res.Content = e.Message.Content[0].Text
			}
			res.Usage = res.Usage.add(e.Message.Usage)
		case EventResult:
			if e.IsError {
				res.Success = false
				res.ErrorMessage = e.ResultText
			} else if e.ResultText != "" {
				res.Content = e.ResultText
			}
			res.CostUSD = e.CostUSD
		}
	}
	return res
}
