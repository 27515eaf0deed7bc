// Package sla owns the response-time policy and the monitor that enforces it.
package sla

import (
	"time"

	"recoup/pkg/domain"
)

// Response-time budgets by priority. Fixed policy, reviewed not computed.
const (
	highBudgetHours   = 48  // 2 days to first contact
	mediumBudgetHours = 168 // 1 week
	lowBudgetHours    = 720 // 30 days
)

// Escalation paths selected on breach.
const (
	ActionEscalateToLegalQueue = "ESCALATE_TO_LEGAL_QUEUE"
	ActionNotifyManager        = "NOTIFY_MANAGER"
)

var budgets = map[domain.Priority]int{
	domain.PriorityHigh:   highBudgetHours,
	domain.PriorityMedium: mediumBudgetHours,
	domain.PriorityLow:    lowBudgetHours,
}

// BudgetHours returns the allowed hours for a priority. Unknown priorities
// get the LOW budget: fail open toward leniency, never toward silent breach.
func BudgetHours(p domain.Priority) int {
	if hours, ok := budgets[p]; ok {
		return hours
	}
	return lowBudgetHours
}

// Budget is BudgetHours as a duration.
func Budget(p domain.Priority) time.Duration {
	return time.Duration(BudgetHours(p)) * time.Hour
}

// EscalationActionFor picks the breach escalation path: HIGH-priority
// breaches go straight to the legal queue, everything else pages a manager.
func EscalationActionFor(p domain.Priority) string {
	if p == domain.PriorityHigh {
		return ActionEscalateToLegalQueue
	}
	return ActionNotifyManager
}
