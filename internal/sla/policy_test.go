package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"recoup/pkg/domain"
)

func TestBudgetHours(t *testing.T) {
	assert.Equal(t, 48, BudgetHours(domain.PriorityHigh))
	assert.Equal(t, 168, BudgetHours(domain.PriorityMedium))
	assert.Equal(t, 720, BudgetHours(domain.PriorityLow))
	// Unknown priorities fall back to the LOW budget.
	assert.Equal(t, 720, BudgetHours(domain.Priority("URGENT")))
	assert.Equal(t, 720, BudgetHours(domain.Priority("")))
}

func TestBudgetDuration(t *testing.T) {
	assert.Equal(t, 48*time.Hour, Budget(domain.PriorityHigh))
}

func TestEscalationActionFor(t *testing.T) {
	assert.Equal(t, ActionEscalateToLegalQueue, EscalationActionFor(domain.PriorityHigh))
	assert.Equal(t, ActionNotifyManager, EscalationActionFor(domain.PriorityMedium))
	assert.Equal(t, ActionNotifyManager, EscalationActionFor(domain.PriorityLow))
}
