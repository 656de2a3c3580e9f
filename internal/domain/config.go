package domain

import (
	"time"

	"github.com/google/uuid"
)

// LoadBalancingStrategy names a strategy for distributing work across
// available agents. It is stored on a Configuration; the workflow driver
// does not read it.
type LoadBalancingStrategy string

const (
	LoadBalanceRoundRobin LoadBalancingStrategy = "round_robin"
	LoadBalanceLeastBusy  LoadBalancingStrategy = "least_busy"
	LoadBalanceCapability LoadBalancingStrategy = "capability_match"
)

// FailureStrategyKind is a closed sum type for how coordination reacts to a
// failed execution (supplemented feature from vibe-ensemble-core/src/
// config.rs, see SPEC_FULL.md §3).
type FailureStrategyKind string

const (
	FailureStrategyRetry    FailureStrategyKind = "retry"
	FailureStrategyFailover FailureStrategyKind = "failover"
	FailureStrategyEscalate FailureStrategyKind = "escalate"
)

// RetryPolicy is the retry shape carried by FailureStrategy and
// IntegrationSpec; workflow step retries use workflow.RetryPolicy instead.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

func (r RetryPolicy) Validate() error {
	if r.MaxDelay < r.InitialDelay {
		return NewValidation("retry policy max delay must be >= initial delay")
	}
	return nil
}

// FailureStrategy is the nested retry/failover/escalate variant from
// spec §3. Only the fields relevant to Kind are meaningful.
type FailureStrategy struct {
	Kind            FailureStrategyKind
	Retry           RetryPolicy
	FailoverAgentID string
	EscalateTo      string
}

// IntegrationSpec describes an external endpoint a Configuration wires
// coordination calls through to.
type IntegrationSpec struct {
	Endpoint string
	Credential string
	Retry    RetryPolicy
}

// Configuration holds coordination settings. Version is a monotonic
// optimistic-lock counter like Knowledge (spec §3 "entities that allow
// in-place update").
type Configuration struct {
	ID                  string
	Name                string
	MaxConcurrency      int
	Timeout             time.Duration
	HeartbeatInterval   time.Duration
	LoadBalancing       LoadBalancingStrategy
	FailureHandling     FailureStrategy
	Behavioral          map[string]string
	Integrations        []IntegrationSpec
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func NewConfiguration(name string, maxConcurrency int, timeout, heartbeat time.Duration, lb LoadBalancingStrategy, fh FailureStrategy) (*Configuration, error) {
	c := &Configuration{
		ID:                uuid.NewString(),
		Name:              name,
		MaxConcurrency:    maxConcurrency,
		Timeout:           timeout,
		HeartbeatInterval: heartbeat,
		LoadBalancing:     lb,
		FailureHandling:   fh,
		Behavioral:        map[string]string{},
		Version:           1,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

// Validate enforces non-zero timeouts, non-zero concurrency, and max delay
// >= initial delay in any nested retry policy (spec §3, §8 boundary
// behaviour), following the Validate() pattern the teacher uses on
// AlertThresholds (internal/types/types.go).
func (c *Configuration) Validate() error {
	if c.MaxConcurrency <= 0 {
		return NewValidation("max concurrency must be greater than zero")
	}
	if c.Timeout <= 0 {
		return NewValidation("timeout must be greater than zero")
	}
	if c.HeartbeatInterval <= 0 {
		return NewValidation("heartbeat interval must be greater than zero")
	}
	if c.FailureHandling.Kind == FailureStrategyRetry {
		if err := c.FailureHandling.Retry.Validate(); err != nil {
			return err
		}
	}
	for _, integ := range c.Integrations {
		if err := integ.Retry.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplyUpdate bumps Version under an optimistic-lock precondition: the
// caller must supply the Version it last observed.
func (c *Configuration) ApplyUpdate(expectedVersion int, mutate func(*Configuration)) error {
	if c.Version != expectedVersion {
		return ErrOptimisticLock
	}
	mutate(c)
	if err := c.Validate(); err != nil {
		return err
	}
	c.Version++
	c.UpdatedAt = time.Now()
	return nil
}
