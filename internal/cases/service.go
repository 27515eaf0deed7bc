package cases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"recoup/internal/audit"
	"recoup/internal/events"
	"recoup/internal/platform/metrics"
	"recoup/internal/scoring"
	"recoup/pkg/domain"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/sentinel"
	txcontext "recoup/pkg/platform/tx"
	"recoup/pkg/requestcontext"
)

// Service is the serialization point for per-case mutation. Every transition
// loads the case, applies the state machine, and commits the mutated copy
// together with its audit entry under a status-pair precondition. A lost race
// surfaces as a conflict error; the caller retries with refreshed state.
type Service struct {
	store   Store
	auditor *audit.Publisher
	events  events.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	tx      txcontext.Runner
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEvents(pub events.Publisher) Option {
	return func(s *Service) { s.events = pub }
}

func WithTxRunner(runner txcontext.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func NewService(store Store, auditor *audit.Publisher, opts ...Option) *Service {
	s := &Service{
		store:   store,
		auditor: auditor,
		events:  events.NopPublisher{},
		logger:  slog.Default(),
		tx:      txcontext.NewNopRunner(),
		tracer:  otel.Tracer("recoup/cases"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates the case for a freshly ingested invoice: status NEW, SLA
// PENDING, score from the engine. One case per invoice; a second open for the
// same invoice reports a conflict (intake treats it as an idempotent skip).
func (s *Service) Open(ctx context.Context, invoiceID domain.InvoiceID, score scoring.Result) (Case, error) {
	now := requestcontext.Now(ctx)
	c := Case{
		ID:                  domain.NewCaseID(),
		InvoiceID:           invoiceID,
		Status:              StatusNew,
		Priority:            score.Priority,
		AIScore:             score.Score,
		RecoveryProbability: score.Probability,
		SLAStatus:           SLAPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, c); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "case already exists for invoice")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
		}
		return s.auditor.Emit(txCtx, audit.Entry{
			CaseID:    c.ID,
			ActorID:   audit.SystemActorID,
			Action:    audit.ActionCaseCreated,
			Details:   fmt.Sprintf("case opened with score %d (%s)", c.AIScore, c.Priority),
			Timestamp: now,
		})
	})
	if err != nil {
		return Case{}, err
	}
	if s.metrics != nil {
		s.metrics.CasesCreated.Inc()
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id domain.CaseID) (Case, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, translateStoreErr(err)
	}
	return c, nil
}

func (s *Service) GetByInvoice(ctx context.Context, invoiceID domain.InvoiceID) (Case, error) {
	c, err := s.store.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return Case{}, translateStoreErr(err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]Case, error) {
	return s.store.List(ctx)
}

func (s *Service) ListScannable(ctx context.Context) ([]Case, error) {
	return s.store.ListScannable(ctx)
}

// Actor-driven transitions. Actor is required on all of them; it attributes
// the audit entry.

func (s *Service) Assign(ctx context.Context, id domain.CaseID, actor, agencyID string) (Case, error) {
	if agencyID == "" {
		return Case{}, dErrors.New(dErrors.CodeBadRequest, "agency id is required")
	}
	return s.Transition(ctx, id, EventAssign, Params{Actor: actor, AgencyID: agencyID})
}

func (s *Service) Accept(ctx context.Context, id domain.CaseID, actor string) (Case, error) {
	return s.Transition(ctx, id, EventAccept, Params{Actor: actor})
}

func (s *Service) Reject(ctx context.Context, id domain.CaseID, actor, reason, agencyID string) (Case, error) {
	if reason == "" {
		return Case{}, dErrors.New(dErrors.CodeBadRequest, "rejection reason is required")
	}
	if agencyID == "" {
		return Case{}, dErrors.New(dErrors.CodeBadRequest, "rejecting agency id is required")
	}
	return s.Transition(ctx, id, EventReject, Params{Actor: actor, Reason: reason, AgencyID: agencyID})
}

func (s *Service) LogPTP(ctx context.Context, id domain.CaseID, actor string) (Case, error) {
	return s.Transition(ctx, id, EventPTP, Params{Actor: actor})
}

func (s *Service) RaiseDispute(ctx context.Context, id domain.CaseID, actor, reason string) (Case, error) {
	return s.Transition(ctx, id, EventDispute, Params{Actor: actor, Reason: reason})
}

func (s *Service) ResolveDispute(ctx context.Context, id domain.CaseID, actor string) (Case, error) {
	return s.Transition(ctx, id, EventResolve, Params{Actor: actor})
}

func (s *Service) AcceptProof(ctx context.Context, id domain.CaseID, actor, evidenceRef string) (Case, error) {
	if evidenceRef == "" {
		return Case{}, dErrors.New(dErrors.CodeBadRequest, "proof evidence reference is required")
	}
	return s.Transition(ctx, id, EventProof, Params{Actor: actor, EvidenceRef: evidenceRef})
}

func (s *Service) Close(ctx context.Context, id domain.CaseID, actor, reason string) (Case, error) {
	return s.Transition(ctx, id, EventClose, Params{Actor: actor, Reason: reason})
}

// Escalate is the monitor-driven breach transition.
func (s *Service) Escalate(ctx context.Context, id domain.CaseID, action string, budgetHours int) (Case, error) {
	return s.Transition(ctx, id, EventEscalate, Params{
		Actor:            audit.SystemActorID,
		EscalationAction: action,
		BudgetHours:      budgetHours,
	})
}

// Transition applies one event to one case. State mutation and audit append
// commit together or not at all.
func (s *Service) Transition(ctx context.Context, id domain.CaseID, ev Event, p Params) (Case, error) {
	ctx, span := s.tracer.Start(ctx, "cases.transition")
	defer span.End()

	if p.Actor == "" {
		return Case{}, dErrors.New(dErrors.CodeBadRequest, "actor is required")
	}

	now := requestcontext.Now(ctx)
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, translateStoreErr(err)
	}

	outcome, err := Apply(current, ev, now, p)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IllegalTransitions.Inc()
		}
		s.logger.WarnContext(ctx, "illegal transition rejected",
			"case_id", id.String(),
			"status", string(current.Status),
			"event", string(ev),
			"actor", p.Actor,
		)
		return Case{}, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.ApplyTransition(txCtx, outcome.Case, current.Status, current.SLAStatus); err != nil {
			return err
		}
		return s.auditor.Emit(txCtx, audit.Entry{
			CaseID:    id,
			ActorID:   p.Actor,
			Action:    outcome.AuditAction,
			Details:   outcome.AuditDetails,
			Timestamp: now,
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.TransitionConflicts.Inc()
			}
			return Case{}, dErrors.Wrap(err, dErrors.CodeConflict, "case changed concurrently, retry with refreshed state")
		}
		return Case{}, translateStoreErr(err)
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(ev)).Inc()
	}
	s.dispatch(ctx, ev, outcome, p)
	return outcome.Case, nil
}

// PauseSLA freezes the SLA timer without touching UpdatedAt, so the elapsed
// clock resumes where it stopped only via an explicit resume reset.
func (s *Service) PauseSLA(ctx context.Context, id domain.CaseID, actor string) (Case, error) {
	return s.setSLA(ctx, id, actor, SLAPaused, false, audit.ActionSLAPaused, "SLA timer paused")
}

// ResumeSLA reactivates the timer and resets UpdatedAt, restarting the
// elapsed-time clock from zero.
func (s *Service) ResumeSLA(ctx context.Context, id domain.CaseID, actor string) (Case, error) {
	return s.setSLA(ctx, id, actor, SLAActive, true, audit.ActionSLAResumed, "SLA timer resumed, clock reset")
}

func (s *Service) setSLA(ctx context.Context, id domain.CaseID, actor string, to SLAStatus, resetClock bool, action, details string) (Case, error) {
	if actor == "" {
		return Case{}, dErrors.New(dErrors.CodeBadRequest, "actor is required")
	}
	now := requestcontext.Now(ctx)
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Case{}, translateStoreErr(err)
	}
	if current.Status.Terminal() {
		return Case{}, dErrors.New(dErrors.CodeTerminalCase,
			fmt.Sprintf("case is %s; SLA timer is final", current.Status))
	}

	updated := current
	updated.SLAStatus = to
	if resetClock {
		updated.UpdatedAt = now
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.ApplyTransition(txCtx, updated, current.Status, current.SLAStatus); err != nil {
			return err
		}
		return s.auditor.Emit(txCtx, audit.Entry{
			CaseID:    id,
			ActorID:   actor,
			Action:    action,
			Details:   details,
			Timestamp: now,
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.TransitionConflicts.Inc()
			}
			return Case{}, dErrors.Wrap(err, dErrors.CodeConflict, "case changed concurrently, retry with refreshed state")
		}
		return Case{}, translateStoreErr(err)
	}
	return updated, nil
}

// Reset wipes all cases; administrative use only.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}

// dispatch emits post-commit events for downstream collaborators. Failures
// are logged, never propagated: the transition has already committed.
func (s *Service) dispatch(ctx context.Context, ev Event, outcome Outcome, p Params) {
	var event events.CaseEvent
	switch ev {
	case EventReject:
		event = events.CaseEvent{Kind: events.KindCaseRejected, Detail: fmt.Sprintf("rejected by %s: %s", p.AgencyID, p.Reason)}
	case EventProof:
		event = events.CaseEvent{Kind: events.KindCasePaid, Detail: p.EvidenceRef}
	case EventEscalate:
		event = events.CaseEvent{Kind: events.KindCaseEscalated, Detail: p.EscalationAction}
	default:
		return
	}
	event.CaseID = outcome.Case.ID
	event.InvoiceID = outcome.Case.InvoiceID
	event.ActorID = p.Actor
	event.At = outcome.Case.UpdatedAt
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish case event",
			"kind", string(event.Kind),
			"case_id", event.CaseID.String(),
			"error", err.Error(),
		)
	}
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent modification")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "case store failure")
	}
}
