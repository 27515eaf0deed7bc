package cases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"recoup/internal/audit"
	"recoup/pkg/domain"
	dErrors "recoup/pkg/domain-errors"
)

type MachineSuite struct {
	suite.Suite
	now time.Time
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineSuite))
}

func (s *MachineSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *MachineSuite) newCase(status Status) Case {
	return Case{
		ID:                  domain.NewCaseID(),
		InvoiceID:           domain.NewInvoiceID(),
		Status:              status,
		Priority:            domain.PriorityMedium,
		AIScore:             56,
		RecoveryProbability: 0.56,
		SLAStatus:           SLAActive,
		CreatedAt:           s.now.Add(-time.Hour),
		UpdatedAt:           s.now.Add(-time.Hour),
	}
}

func (s *MachineSuite) TestLegalPairs() {
	pairs := []struct {
		from Status
		ev   Event
		to   Status
	}{
		{StatusNew, EventAssign, StatusAssigned},
		{StatusQueued, EventAssign, StatusAssigned},
		{StatusAssigned, EventAccept, StatusWIP},
		{StatusAssigned, EventReject, StatusQueued},
		{StatusAssigned, EventEscalate, StatusEscalated},
		{StatusWIP, EventPTP, StatusPTP},
		{StatusWIP, EventDispute, StatusDispute},
		{StatusWIP, EventProof, StatusPaid},
		{StatusWIP, EventEscalate, StatusEscalated},
		{StatusPTP, EventDispute, StatusDispute},
		{StatusPTP, EventProof, StatusPaid},
		{StatusPTP, EventEscalate, StatusEscalated},
		{StatusNew, EventClose, StatusClosed},
		{StatusQueued, EventClose, StatusClosed},
		{StatusAssigned, EventClose, StatusClosed},
		{StatusWIP, EventClose, StatusClosed},
		{StatusPTP, EventClose, StatusClosed},
		{StatusDispute, EventClose, StatusClosed},
		{StatusEscalated, EventClose, StatusClosed},
	}
	for _, p := range pairs {
		c := s.newCase(p.from)
		out, err := Apply(c, p.ev, s.now, Params{Actor: "agent-1", Reason: "r", AgencyID: "AG-1", EvidenceRef: "ref"})
		s.Require().NoError(err, "%s + %s", p.from, p.ev)
		s.Equal(p.to, out.Case.Status, "%s + %s", p.from, p.ev)
		s.Equal(s.now, out.Case.UpdatedAt)
	}
}

func (s *MachineSuite) TestIllegalPairsRejected() {
	pairs := []struct {
		from Status
		ev   Event
	}{
		{StatusNew, EventAccept},
		{StatusNew, EventProof},
		{StatusQueued, EventPTP},
		{StatusAssigned, EventAssign},
		{StatusAssigned, EventProof},
		{StatusWIP, EventAssign},
		{StatusWIP, EventAccept},
		{StatusPTP, EventPTP},
		{StatusDispute, EventDispute},
		{StatusDispute, EventProof},
		{StatusEscalated, EventAssign},
		{StatusEscalated, EventEscalate},
	}
	for _, p := range pairs {
		c := s.newCase(p.from)
		_, err := Apply(c, p.ev, s.now, Params{Actor: "agent-1"})
		s.Require().Error(err, "%s + %s", p.from, p.ev)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "%s + %s", p.from, p.ev)
	}
}

func (s *MachineSuite) TestTerminalCasesFrozen() {
	for _, status := range []Status{StatusPaid, StatusClosed} {
		c := s.newCase(status)
		for _, ev := range []Event{EventAssign, EventAccept, EventPTP, EventProof, EventClose, EventEscalate} {
			_, err := Apply(c, ev, s.now, Params{Actor: "agent-1"})
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeTerminalCase), "%s + %s", status, ev)
		}
	}
}

func (s *MachineSuite) TestAssignSetsAgencyAndActivatesSLA() {
	c := s.newCase(StatusNew)
	c.SLAStatus = SLAPending
	out, err := Apply(c, EventAssign, s.now, Params{Actor: "dispatcher", AgencyID: "AG-7"})
	s.Require().NoError(err)
	s.Equal("AG-7", out.Case.AssignedTo)
	s.Require().NotNil(out.Case.AssignedAt)
	s.Equal(s.now, *out.Case.AssignedAt)
	s.Equal(SLAActive, out.Case.SLAStatus)
	s.Equal(audit.ActionAssign, out.AuditAction)
}

func (s *MachineSuite) TestRejectClearsAssignment() {
	c := s.newCase(StatusAssigned)
	c.AssignedTo = "AG-7"
	at := s.now.Add(-time.Hour)
	c.AssignedAt = &at
	out, err := Apply(c, EventReject, s.now, Params{Actor: "agency", Reason: "out of territory", AgencyID: "AG-7"})
	s.Require().NoError(err)
	s.Equal(StatusQueued, out.Case.Status)
	s.Empty(out.Case.AssignedTo)
	s.Nil(out.Case.AssignedAt)
	s.Equal(SLAPending, out.Case.SLAStatus)
	s.Equal("out of territory", out.AuditDetails)
}

func (s *MachineSuite) TestPTPBoostsScoreAndReprioritizes() {
	c := s.newCase(StatusWIP)
	c.AIScore = 70
	c.Priority = domain.PriorityMedium
	out, err := Apply(c, EventPTP, s.now, Params{Actor: "agent-1"})
	s.Require().NoError(err)
	s.Equal(85, out.Case.AIScore)
	s.Equal(0.85, out.Case.RecoveryProbability)
	s.Equal(domain.PriorityHigh, out.Case.Priority)
}

func (s *MachineSuite) TestPTPBoostCapsAtHundred() {
	c := s.newCase(StatusWIP)
	c.AIScore = 95
	out, err := Apply(c, EventPTP, s.now, Params{Actor: "agent-1"})
	s.Require().NoError(err)
	s.Equal(100, out.Case.AIScore)
	s.Equal(1.0, out.Case.RecoveryProbability)
}

func (s *MachineSuite) TestDisputeRemembersOrigin() {
	c := s.newCase(StatusPTP)
	out, err := Apply(c, EventDispute, s.now, Params{Actor: "customer", Reason: "amount contested"})
	s.Require().NoError(err)
	s.Equal(StatusDispute, out.Case.Status)
	s.Equal(StatusPTP, out.Case.PrevStatus)
	s.Equal(SLAPaused, out.Case.SLAStatus)
}

func (s *MachineSuite) TestResolveRestoresPriorStatus() {
	c := s.newCase(StatusDispute)
	c.PrevStatus = StatusPTP
	out, err := Apply(c, EventResolve, s.now, Params{Actor: "agent-1"})
	s.Require().NoError(err)
	s.Equal(StatusPTP, out.Case.Status)
	s.Empty(out.Case.PrevStatus)
	s.Equal(SLAActive, out.Case.SLAStatus)
	s.Equal(s.now, out.Case.UpdatedAt)
}

func (s *MachineSuite) TestResolveDefaultsToWIP() {
	c := s.newCase(StatusDispute)
	c.PrevStatus = ""
	out, err := Apply(c, EventResolve, s.now, Params{Actor: "agent-1"})
	s.Require().NoError(err)
	s.Equal(StatusWIP, out.Case.Status)
}

func (s *MachineSuite) TestEscalateSetsBreachTimeOnce() {
	c := s.newCase(StatusWIP)
	c.Priority = domain.PriorityHigh
	out, err := Apply(c, EventEscalate, s.now, Params{
		Actor:            audit.SystemActorID,
		EscalationAction: "moved to legal-review queue",
		BudgetHours:      48,
	})
	s.Require().NoError(err)
	s.Equal(StatusEscalated, out.Case.Status)
	s.Equal(SLABreached, out.Case.SLAStatus)
	s.Require().NotNil(out.Case.SLABreachTime)
	s.Equal(s.now, *out.Case.SLABreachTime)
	s.Equal("Breached HIGH priority SLA limit of 48 hours. Action taken: moved to legal-review queue.", out.AuditDetails)

	// A second breach must not move the original breach timestamp.
	later := s.now.Add(time.Hour)
	out.Case.Status = StatusWIP
	again, err := Apply(out.Case, EventEscalate, later, Params{Actor: audit.SystemActorID, EscalationAction: "x", BudgetHours: 48})
	s.Require().NoError(err)
	s.Equal(s.now, *again.Case.SLABreachTime)
}

func (s *MachineSuite) TestProofCompletesSLA() {
	c := s.newCase(StatusWIP)
	out, err := Apply(c, EventProof, s.now, Params{Actor: "agent-1", EvidenceRef: "s3://proofs/123"})
	s.Require().NoError(err)
	s.Equal(StatusPaid, out.Case.Status)
	s.Equal(SLACompleted, out.Case.SLAStatus)
	s.Equal("s3://proofs/123", out.AuditDetails)
}

func (s *MachineSuite) TestApplyLeavesInputUntouched() {
	c := s.newCase(StatusWIP)
	before := c
	_, err := Apply(c, EventPTP, s.now, Params{Actor: "agent-1"})
	s.Require().NoError(err)
	s.Equal(before, c)
}
