package cases

import (
	"fmt"
	"time"

	"recoup/internal/audit"
	"recoup/internal/scoring"
	dErrors "recoup/pkg/domain-errors"
)

// The PTP commitment is worth a fixed score boost, capped at 100.
const ptpScoreBoost = 15

// Params carries the event-specific inputs a transition may need. Actor is
// always explicit; there is no ambient "current user".
type Params struct {
	Actor            string
	Reason           string
	AgencyID         string
	EvidenceRef      string
	EscalationAction string
	BudgetHours      int
}

// Outcome is the result of a legal transition: the mutated copy of the case
// plus the audit entry that must be committed with it.
type Outcome struct {
	Case         Case
	AuditAction  string
	AuditDetails string
}

// apply funcs mutate the already-retargeted copy; from is the status the case
// held before the event.
type transition struct {
	to    Status
	apply func(c *Case, from Status, now time.Time, p Params) (action, details string)
}

// transitions is the single source of truth for (from, event) legality.
// Close is appended for every non-terminal state in init.
var transitions = map[Status]map[Event]transition{
	StatusNew: {
		EventAssign: {to: StatusAssigned, apply: applyAssign},
	},
	StatusQueued: {
		EventAssign: {to: StatusAssigned, apply: applyAssign},
	},
	StatusAssigned: {
		EventAccept: {to: StatusWIP, apply: func(c *Case, _ Status, _ time.Time, _ Params) (string, string) {
			c.SLAStatus = SLAActive
			return audit.ActionStatusChange, "case accepted, work in progress"
		}},
		EventReject: {to: StatusQueued, apply: func(c *Case, _ Status, _ time.Time, p Params) (string, string) {
			c.AssignedTo = ""
			c.AssignedAt = nil
			c.SLAStatus = SLAPending
			return audit.ActionReject, p.Reason
		}},
		EventEscalate: {to: StatusEscalated, apply: applyEscalate},
	},
	StatusWIP: {
		EventPTP: {to: StatusPTP, apply: func(c *Case, _ Status, _ time.Time, _ Params) (string, string) {
			c.SLAStatus = SLAActive
			boostScore(c)
			return audit.ActionPTP, "Promise to Pay logged"
		}},
		EventDispute:  {to: StatusDispute, apply: applyDispute},
		EventProof:    {to: StatusPaid, apply: applyProof},
		EventEscalate: {to: StatusEscalated, apply: applyEscalate},
	},
	StatusPTP: {
		EventDispute:  {to: StatusDispute, apply: applyDispute},
		EventProof:    {to: StatusPaid, apply: applyProof},
		EventEscalate: {to: StatusEscalated, apply: applyEscalate},
	},
	StatusDispute: {
		EventResolve: {apply: func(c *Case, _ Status, _ time.Time, _ Params) (string, string) {
			// Return to the status the dispute interrupted; the SLA clock
			// restarts from zero via the UpdatedAt reset in Apply.
			to := c.PrevStatus
			if to == "" || to == StatusDispute {
				to = StatusWIP
			}
			c.Status = to
			c.PrevStatus = ""
			c.SLAStatus = SLAActive
			return audit.ActionResolve, fmt.Sprintf("dispute resolved, case returned to %s", to)
		}},
	},
}

func init() {
	for _, from := range []Status{
		StatusNew, StatusQueued, StatusAssigned, StatusWIP,
		StatusPTP, StatusDispute, StatusEscalated,
	} {
		if transitions[from] == nil {
			transitions[from] = map[Event]transition{}
		}
		transitions[from][EventClose] = transition{to: StatusClosed, apply: func(c *Case, _ Status, _ time.Time, p Params) (string, string) {
			c.SLAStatus = SLACompleted
			return audit.ActionClose, p.Reason
		}}
	}
}

func applyAssign(c *Case, _ Status, now time.Time, p Params) (string, string) {
	c.AssignedTo = p.AgencyID
	c.AssignedAt = &now
	c.SLAStatus = SLAActive
	return audit.ActionAssign, fmt.Sprintf("assigned to agency %s", p.AgencyID)
}

func applyDispute(c *Case, from Status, _ time.Time, p Params) (string, string) {
	c.PrevStatus = from
	c.SLAStatus = SLAPaused
	return audit.ActionDispute, p.Reason
}

func applyProof(c *Case, _ Status, _ time.Time, p Params) (string, string) {
	c.SLAStatus = SLACompleted
	return audit.ActionProof, p.EvidenceRef
}

func applyEscalate(c *Case, _ Status, now time.Time, p Params) (string, string) {
	c.SLAStatus = SLABreached
	if c.SLABreachTime == nil {
		t := now
		c.SLABreachTime = &t
	}
	return audit.ActionSLAEscalation, fmt.Sprintf(
		"Breached %s priority SLA limit of %d hours. Action taken: %s.",
		c.Priority, p.BudgetHours, p.EscalationAction,
	)
}

func boostScore(c *Case) {
	score := c.AIScore + ptpScoreBoost
	if score > 100 {
		score = 100
	}
	c.AIScore = score
	c.RecoveryProbability = float64(score) / 100
	c.Priority = scoring.PriorityForScore(score)
}

// Apply validates (c.Status, ev) against the transition table and returns the
// mutated copy with its paired audit entry. Illegal pairs return a coded
// error and leave the input untouched; callers report, they don't retry.
func Apply(c Case, ev Event, now time.Time, p Params) (Outcome, error) {
	if c.Status.Terminal() {
		return Outcome{}, dErrors.New(dErrors.CodeTerminalCase,
			fmt.Sprintf("case is %s; no further transitions permitted", c.Status))
	}
	t, ok := transitions[c.Status][ev]
	if !ok {
		return Outcome{}, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("event %q is not valid for status %s", ev, c.Status))
	}

	from := c.Status
	updated := c
	if t.to != "" {
		updated.Status = t.to
	}
	action, details := t.apply(&updated, from, now, p)
	updated.UpdatedAt = now

	return Outcome{Case: updated, AuditAction: action, AuditDetails: details}, nil
}
