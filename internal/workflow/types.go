// Package workflow sequences ordered steps against a single workspace,
// running each through internal/orchestration.Executor and aggregating
// per-step outcomes into one WorkflowResult (spec §4.3). Grounded on
// internal/captain/captain.go's Run/runCycle ticking loop and on
// original_source/vibe-ensemble-core/src/orchestration/workflow.go's
// WorkflowExecutor for the step/condition/retry vocabulary.
package workflow

import (
	"time"
)

// ConditionType is the closed sum a step's gating conditions are drawn
// from (spec §4.3). CapabilityRequired and Custom are extension points
// that always evaluate true in this reference semantics.
type ConditionType string

const (
	ConditionPreviousStepSuccess ConditionType = "previous_step_success"
	ConditionPreviousStepFailure ConditionType = "previous_step_failure"
	ConditionVariableEquals      ConditionType = "variable_equals"
	ConditionCapabilityRequired  ConditionType = "capability_required"
	ConditionCustom              ConditionType = "custom"
)

// Condition gates whether a step executes. Value holds the referenced
// step id for PreviousStepSuccess/Failure, or the expected value for
// VariableEquals; Variable names the variable for VariableEquals.
type Condition struct {
	Type     ConditionType
	Value    string
	Variable string
}

// RetryPolicy bounds how many times a failed step attempt is retried and
// how long the driver waits between attempts (spec §4.3).
type RetryPolicy struct {
	MaxRetries     int
	RetryDelay     time.Duration
	ContinueOnFail bool
}

// Step is one unit of workflow execution (spec §4.3's step model).
type Step struct {
	ID          string
	Name        string
	Description string
	Order       int
	Conditions  []Condition
	StepTimeout time.Duration
	Retry       RetryPolicy
}

// Config tunes one workflow run (the overall deadline and the default
// continue_on_failure behavior when a step's own RetryPolicy doesn't set
// one explicitly).
type Config struct {
	Timeout           time.Duration
	ContinueOnFailure bool
}

// Status is the workflow's closed state machine (spec §4.3).
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// StepResult records one step's execution outcome.
type StepResult struct {
	StepID      string
	Success     bool
	Content     string
	Error       string
	RetryCount  int
	Skipped     bool
	Duration    time.Duration
	StartedAt   time.Time
	CompletedAt time.Time
}

// Stats summarizes a completed workflow run.
type Stats struct {
	TotalDuration time.Duration
	StepsExecuted int
	StepsSkipped  int
	TotalRetries  int
	TotalCostUSD  float64
}

// Result is the outcome of one workflow run (spec §4.3's WorkflowResult).
type Result struct {
	WorkflowID  string
	Status      Status
	StepResults map[string]StepResult
	Stats       Stats
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
}
