package audit

import (
	"time"

	"recoup/pkg/domain"
)

// Actor identifier used for monitor-driven entries.
const SystemActorID = "SYSTEM_SLA_ENGINE"

// Action kinds recorded by the core. Free-text context goes in Details.
const (
	ActionCaseCreated   = "CASE_CREATED"
	ActionStatusChange  = "STATUS_CHANGE"
	ActionAssign        = "ASSIGN"
	ActionReject        = "REJECT"
	ActionPTP           = "PTP"
	ActionDispute       = "DISPUTE"
	ActionResolve       = "DISPUTE_RESOLVED"
	ActionProof         = "PROOF"
	ActionClose         = "CLOSE"
	ActionSLAEscalation = "SLA_BREACH_ESCALATION"
	ActionSLAPaused     = "SLA_PAUSED"
	ActionSLAResumed    = "SLA_RESUMED"
	ActionReminder      = "WEEKLY_REMINDER"
)

// Entry is one append-only audit record. Immutable once written; the only
// destructive operation is the administrative bulk reset.
type Entry struct {
	ID        string        `json:"id"`
	CaseID    domain.CaseID `json:"case_id"`
	ActorID   string        `json:"actor_id"`
	Action    string        `json:"action"`
	Details   string        `json:"details"`
	Timestamp time.Time     `json:"timestamp"`
}
