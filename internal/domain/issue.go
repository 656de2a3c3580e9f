package domain

import (
	"time"

	"github.com/google/uuid"
)

type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "Low"
	IssuePriorityMedium   IssuePriority = "Medium"
	IssuePriorityHigh     IssuePriority = "High"
	IssuePriorityCritical IssuePriority = "Critical"
)

type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusInProgress IssueStatus = "InProgress"
	IssueStatusBlocked    IssueStatus = "Blocked"
	IssueStatusResolved   IssueStatus = "Resolved"
	IssueStatusClosed     IssueStatus = "Closed"
)

// WebMetadata is the optional external-URL bundle carried over from the
// original Rust issue.rs (supplemented feature, see SPEC_FULL.md §3).
type WebMetadata struct {
	URL         string
	Title       string
	Description string
}

// Issue is a tracked unit of work with the status graph enforced by
// SetStatus/Assign/Block/Unblock (spec §3, §8 scenario 2).
type Issue struct {
	ID               string
	Title            string
	Description      string
	Priority         IssuePriority
	Status           IssueStatus
	BlockedReason    string
	Assignee         string
	Tags             []string
	KnowledgeLinks   []string
	WebMetadata      *WebMetadata
	ResolvedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const (
	MaxIssueTitleLen       = 200
	MaxIssueDescriptionLen = 10000
	MaxTagLen              = 50
)

func NewIssue(title, description string, priority IssuePriority) (*Issue, error) {
	if len(title) == 0 || len(title) > MaxIssueTitleLen {
		return nil, NewValidation("issue title must be 1-%d characters", MaxIssueTitleLen)
	}
	if len(description) == 0 || len(description) > MaxIssueDescriptionLen {
		return nil, NewValidation("issue description must be 1-%d characters", MaxIssueDescriptionLen)
	}
	now := time.Now()
	return &Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      IssueStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// issueTransitions encodes the status graph from spec §3: Open ->
// InProgress|Blocked; InProgress -> Blocked|Resolved; Blocked ->
// Open|InProgress; Resolved and Closed are terminal.
var issueTransitions = map[IssueStatus]map[IssueStatus]bool{
	IssueStatusOpen:       {IssueStatusInProgress: true, IssueStatusBlocked: true},
	IssueStatusInProgress: {IssueStatusBlocked: true, IssueStatusResolved: true},
	IssueStatusBlocked:    {IssueStatusOpen: true, IssueStatusInProgress: true},
	IssueStatusResolved:   {},
	IssueStatusClosed:     {},
}

// SetStatus validates and applies a status transition, stamping ResolvedAt
// exactly once on first entry to Resolved or Closed (spec §8 universal
// invariant).
func (i *Issue) SetStatus(next IssueStatus) error {
	if next == IssueStatusBlocked {
		return NewValidation("use Block(reason) to enter Blocked status")
	}
	allowed := issueTransitions[i.Status]
	if !allowed[next] {
		return NewStateTransition("issue %s cannot transition from %s to %s", i.ID, i.Status, next)
	}
	i.Status = next
	i.UpdatedAt = time.Now()
	if (next == IssueStatusResolved || next == IssueStatusClosed) && i.ResolvedAt == nil {
		now := i.UpdatedAt
		i.ResolvedAt = &now
	}
	return nil
}

// Assign may only happen while Open; it transitions the issue to
// InProgress. Calling it again with the same agent while already
// InProgress+assigned is the idempotent case from spec §8; any other
// repeat call fails rather than silently succeeding.
func (i *Issue) Assign(agentID string) error {
	if i.Status == IssueStatusInProgress && i.Assignee == agentID {
		return nil
	}
	if i.Status != IssueStatusOpen {
		return NewStateTransition("issue %s can only be assigned while Open (current: %s)", i.ID, i.Status)
	}
	if agentID == "" {
		return NewValidation("assignee agent id must not be empty")
	}
	i.Assignee = agentID
	i.Status = IssueStatusInProgress
	i.UpdatedAt = time.Now()
	return nil
}

// Block requires a non-empty reason and is valid from Open or InProgress.
func (i *Issue) Block(reason string) error {
	if reason == "" {
		return NewValidation("block requires a non-empty reason")
	}
	allowed := issueTransitions[i.Status]
	if !allowed[IssueStatusBlocked] {
		return NewStateTransition("issue %s cannot be blocked from %s", i.ID, i.Status)
	}
	i.Status = IssueStatusBlocked
	i.BlockedReason = reason
	i.UpdatedAt = time.Now()
	return nil
}

// Unblock is rejected outside Blocked.
func (i *Issue) Unblock(next IssueStatus) error {
	if i.Status != IssueStatusBlocked {
		return NewStateTransition("unblock rejected: issue %s is not Blocked", i.ID)
	}
	if next != IssueStatusOpen && next != IssueStatusInProgress {
		return NewValidation("unblock target must be Open or InProgress")
	}
	i.Status = next
	i.BlockedReason = ""
	i.UpdatedAt = time.Now()
	return nil
}

func (i *Issue) AddTag(tag string) error {
	if len(tag) == 0 || len(tag) > MaxTagLen {
		return NewValidation("tag must be 1-%d characters", MaxTagLen)
	}
	for _, t := range i.Tags {
		if t == tag {
			return nil
		}
	}
	i.Tags = append(i.Tags, tag)
	i.UpdatedAt = time.Now()
	return nil
}
