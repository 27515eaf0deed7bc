package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"recoup/pkg/domain"
	"recoup/pkg/platform/sentinel"
)

type AuditStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *AuditStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) TestAppendAndListByCase() {
	caseA := domain.NewCaseID()
	caseB := domain.NewCaseID()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(s.ctx, Entry{CaseID: caseA, ActorID: "agent-1", Action: ActionAssign, Timestamp: base}))
	s.Require().NoError(s.store.Append(s.ctx, Entry{CaseID: caseB, ActorID: "agent-2", Action: ActionAssign, Timestamp: base.Add(time.Minute)}))
	s.Require().NoError(s.store.Append(s.ctx, Entry{CaseID: caseA, ActorID: "agent-1", Action: ActionPTP, Timestamp: base.Add(2 * time.Minute)}))

	entries, err := s.store.ListByCase(s.ctx, caseA)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(ActionAssign, entries[0].Action)
	s.Equal(ActionPTP, entries[1].Action)
	s.NotEmpty(entries[0].ID)

	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *AuditStoreSuite) TestLastByCaseAction() {
	caseID := domain.NewCaseID()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := s.store.LastByCaseAction(s.ctx, caseID, ActionReminder)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Append(s.ctx, Entry{CaseID: caseID, Action: ActionReminder, Timestamp: base}))
	s.Require().NoError(s.store.Append(s.ctx, Entry{CaseID: caseID, Action: ActionReminder, Timestamp: base.Add(time.Hour)}))

	last, err := s.store.LastByCaseAction(s.ctx, caseID, ActionReminder)
	s.Require().NoError(err)
	s.Equal(base.Add(time.Hour), last.Timestamp)
}

func (s *AuditStoreSuite) TestReset() {
	s.Require().NoError(s.store.Append(s.ctx, Entry{CaseID: domain.NewCaseID(), Action: ActionClose}))
	s.Require().NoError(s.store.Reset(s.ctx))
	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}
