package workflow

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/domain"
	"github.com/vibe-ensemble/vibe-ensemble-go/internal/orchestration"
)

// PromptRenderer builds the prompt text for a step given the current
// shared variable map. The default substitutes "Execute workflow step"
// boilerplate the way original_source's generate_step_prompt does;
// callers may supply a template-driven renderer instead.
type PromptRenderer func(step Step, variables map[string]string) string

func defaultPromptRenderer(step Step, variables map[string]string) string {
	prompt := fmt.Sprintf("Execute workflow step: %s\n\nDescription: %s\n\n", step.Name, step.Description)
	if len(variables) > 0 {
		prompt += "Available variables:\n"
		for k, v := range variables {
			prompt += fmt.Sprintf("- %s: %s\n", k, v)
		}
		prompt += "\n"
	}
	return prompt + "Please complete this step and provide a summary of what was accomplished."
}

// activeWorkflow is the driver's in-flight bookkeeping record for one run.
type activeWorkflow struct {
	status  Status
	started time.Time
}

// Driver sequences Steps against a workspace, one workflow at a time per
// call to Execute, while tracking every in-flight run so operators can
// inspect or cancel it (spec §4.3). Grounded on
// internal/captain/captain.go's Run/runCycle tick loop, generalized from
// a standing background loop into an on-demand, explicitly invoked run.
type Driver struct {
	executor *orchestration.Executor
	render   PromptRenderer

	mu     sync.Mutex
	active map[string]*activeWorkflow
}

func NewDriver(executor *orchestration.Executor) *Driver {
	return &Driver{
		executor: executor,
		render:   defaultPromptRenderer,
		active:   make(map[string]*activeWorkflow),
	}
}

// SetPromptRenderer overrides the default step-prompt template.
func (d *Driver) SetPromptRenderer(r PromptRenderer) {
	if r != nil {
		d.render = r
	}
}

// Execute runs steps, sorted by Order, against ws to completion, failure,
// timeout, or cancellation (spec §4.3's execution algorithm).
func (d *Driver) Execute(ctx context.Context, ws orchestration.WorkspaceConfig, steps []Step, variables map[string]string, cfg Config) *Result {
	workflowID := uuid.NewString()
	startedAt := time.Now()

	d.mu.Lock()
	d.active[workflowID] = &activeWorkflow{status: StatusRunning, started: startedAt}
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.active, workflowID)
		d.mu.Unlock()
	}()

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	type stepRunOutcome struct {
		results map[string]StepResult
		status  Status
		errMsg  string
	}
	done := make(chan stepRunOutcome, 1)

	go func() {
		results, status, errMsg := d.runSteps(ctx, workflowID, ws, steps, variables, cfg)
		done <- stepRunOutcome{results: results, status: status, errMsg: errMsg}
	}()

	var outcome stepRunOutcome
	select {
	case outcome = <-done:
	case <-ctx.Done():
		outcome = stepRunOutcome{results: map[string]StepResult{}, status: StatusFailed, errMsg: "workflow execution timed out"}
	}

	completedAt := time.Now()
	stats := calculateStats(outcome.results, startedAt, completedAt)
	return &Result{
		WorkflowID:  workflowID,
		Status:      outcome.status,
		StepResults: outcome.results,
		Stats:       stats,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Error:       outcome.errMsg,
	}
}

func (d *Driver) runSteps(ctx context.Context, workflowID string, ws orchestration.WorkspaceConfig, steps []Step, variables map[string]string, cfg Config) (map[string]StepResult, Status, string) {
	results := make(map[string]StepResult, len(steps))
	vars := make(map[string]string, len(variables))
	for k, v := range variables {
		vars[k] = v
	}

	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	var workflowErr string
	for _, step := range sorted {
		if d.statusOf(workflowID) == StatusCancelled {
			workflowErr = "workflow was cancelled"
			return results, StatusCancelled, workflowErr
		}

		if !shouldExecuteStep(step, results, vars) {
			results[step.ID] = StepResult{StepID: step.ID, Skipped: true}
			continue
		}

		res := d.runStepWithRetries(ctx, ws, step, vars, cfg)
		results[step.ID] = res

		vars[step.ID+"_output"] = res.Content
		vars[step.ID+"_success"] = fmt.Sprintf("%t", res.Success)

		if !res.Success {
			continueOnFail := step.Retry.ContinueOnFail || cfg.ContinueOnFailure
			if continueOnFail {
				workflowErr = fmt.Sprintf("step %q failed but continuing workflow", step.ID)
				log.Printf("workflow: step %s failed, continuing (continue_on_failure=true)", step.ID)
				continue
			}
			workflowErr = fmt.Sprintf("step %q failed, stopping workflow", step.ID)
			return results, StatusFailed, workflowErr
		}
	}

	if workflowErr != "" {
		return results, StatusFailed, workflowErr
	}
	return results, StatusCompleted, ""
}

func (d *Driver) runStepWithRetries(ctx context.Context, ws orchestration.WorkspaceConfig, step Step, vars map[string]string, cfg Config) StepResult {
	startedAt := time.Now()
	retryCount := 0

	for {
		attemptStart := time.Now()
		prompt := d.render(step, vars)

		execCfg := orchestration.ExecConfig{Timeout: step.StepTimeout}
		execRes, err := d.executor.Execute(ctx, ws, prompt, execCfg)
		attemptEnd := time.Now()
		duration := attemptEnd.Sub(attemptStart)

		if err == nil && execRes.Success {
			return StepResult{
				StepID:      step.ID,
				Success:     execRes.Success,
				Content:     execRes.Content,
				RetryCount:  retryCount,
				Duration:    duration,
				StartedAt:   startedAt,
				CompletedAt: attemptEnd,
			}
		}

		errMsg, content := "", ""
		if err != nil {
			errMsg = err.Error()
		} else {
			errMsg, content = execRes.ErrorMessage, execRes.Content
		}

		if retryCount >= step.Retry.MaxRetries {
			return StepResult{
				StepID:      step.ID,
				Success:     false,
				Content:     content,
				Error:       errMsg,
				RetryCount:  retryCount,
				Duration:    duration,
				StartedAt:   startedAt,
				CompletedAt: attemptEnd,
			}
		}

		retryCount++
		log.Printf("workflow: step %s attempt %d failed: %s, retrying in %s", step.ID, retryCount, errMsg, step.Retry.RetryDelay)
		select {
		case <-time.After(step.Retry.RetryDelay):
		case <-ctx.Done():
			return StepResult{
				StepID:      step.ID,
				Success:     false,
				Error:       ctx.Err().Error(),
				RetryCount:  retryCount,
				Duration:    time.Since(startedAt),
				StartedAt:   startedAt,
				CompletedAt: time.Now(),
			}
		}
	}
}

// shouldExecuteStep evaluates a step's gating conditions. An empty
// condition list always executes (spec §4.3).
func shouldExecuteStep(step Step, results map[string]StepResult, vars map[string]string) bool {
	if len(step.Conditions) == 0 {
		return true
	}
	for _, cond := range step.Conditions {
		switch cond.Type {
		case ConditionPreviousStepSuccess:
			prev, ok := results[cond.Value]
			if !ok || !prev.Success {
				return false
			}
		case ConditionPreviousStepFailure:
			prev, ok := results[cond.Value]
			if !ok || prev.Success {
				return false
			}
		case ConditionVariableEquals:
			val, ok := vars[cond.Variable]
			if !ok || val != cond.Value {
				return false
			}
		case ConditionCapabilityRequired, ConditionCustom:
			// extension points; reference semantics treat these as satisfied.
		}
	}
	return true
}

func calculateStats(results map[string]StepResult, startedAt, completedAt time.Time) Stats {
	stats := Stats{TotalDuration: completedAt.Sub(startedAt)}
	for _, r := range results {
		if r.Skipped {
			stats.StepsSkipped++
			continue
		}
		stats.StepsExecuted++
		stats.TotalRetries += r.RetryCount
	}
	return stats
}

func (d *Driver) statusOf(workflowID string) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if aw, ok := d.active[workflowID]; ok {
		return aw.status
	}
	return StatusCompleted
}

// GetStatus reports the live status of an in-flight workflow.
func (d *Driver) GetStatus(workflowID string) (Status, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	aw, ok := d.active[workflowID]
	if !ok {
		return "", false
	}
	return aw.status, true
}

// Cancel marks an in-flight workflow Cancelled. Cancellation is
// cooperative: the driver checks status between steps, so a step
// currently running via the executor still completes its call (spec
// §4.3).
func (d *Driver) Cancel(workflowID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	aw, ok := d.active[workflowID]
	if !ok {
		return domain.NewNotFound("workflow", workflowID)
	}
	aw.status = StatusCancelled
	return nil
}

// ListActive returns the ids of every workflow currently tracked as
// in-flight.
func (d *Driver) ListActive() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.active))
	for id := range d.active {
		ids = append(ids, id)
	}
	return ids
}
