package cases

import (
	"time"

	"recoup/pkg/domain"
)

// Status is the case lifecycle state. PAID and CLOSED are terminal: no
// transition, rescore, or audit entry may touch a terminal case.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusQueued    Status = "QUEUED"
	StatusAssigned  Status = "ASSIGNED"
	StatusWIP       Status = "WIP"
	StatusPTP       Status = "PTP"
	StatusDispute   Status = "DISPUTE"
	StatusPaid      Status = "PAID"
	StatusEscalated Status = "ESCALATED"
	StatusClosed    Status = "CLOSED"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusClosed
}

// SLAStatus tracks the service-level timer state alongside Status.
type SLAStatus string

const (
	SLAPending   SLAStatus = "PENDING"
	SLAActive    SLAStatus = "ACTIVE"
	SLAPaused    SLAStatus = "PAUSED"
	SLABreached  SLAStatus = "BREACHED"
	SLACompleted SLAStatus = "COMPLETED"
)

// Event names a requested transition. Legality depends on the current status;
// see the transition table in machine.go.
type Event string

const (
	EventAssign   Event = "assign"
	EventAccept   Event = "accept"
	EventReject   Event = "reject"
	EventPTP      Event = "ptp"
	EventDispute  Event = "dispute"
	EventResolve  Event = "resolve"
	EventProof    Event = "proof"
	EventClose    Event = "close"
	EventEscalate Event = "escalate"
)

// Case is the mutable recovery-workflow record tracking one invoice through
// resolution. AIScore, RecoveryProbability, and Priority move together: every
// rescoring event updates all three.
type Case struct {
	ID                  domain.CaseID    `json:"id"`
	InvoiceID           domain.InvoiceID `json:"invoice_id"`
	Status              Status           `json:"status"`
	PrevStatus          Status           `json:"prev_status,omitempty"` // status to restore when a dispute resolves
	Priority            domain.Priority  `json:"priority"`
	AIScore             int              `json:"ai_score"`
	RecoveryProbability float64          `json:"recovery_probability"`
	SLAStatus           SLAStatus        `json:"sla_status"`
	AssignedTo          string           `json:"assigned_to,omitempty"`
	AssignedAt          *time.Time       `json:"assigned_at,omitempty"`
	SLABreachTime       *time.Time       `json:"sla_breach_time,omitempty"` // set once on first breach, never cleared
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"` // SLA clock reference: elapsed time is measured from here
}
