package sla

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"recoup/internal/audit"
	"recoup/internal/cases"
	"recoup/internal/platform/metrics"
	"recoup/internal/platform/redis"
	"recoup/pkg/domain"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/sentinel"
	"recoup/pkg/requestcontext"
)

// Reminder cadence for MEDIUM-priority cases: one non-breaching touchpoint
// nudge per stale window.
const (
	reminderAfter  = 7 * 24 * time.Hour
	reminderBefore = 14 * 24 * time.Hour
)

const scanLeaseKey = "recoup:sla:scan"

// CaseService is the slice of the case service the monitor needs.
type CaseService interface {
	ListScannable(ctx context.Context) ([]cases.Case, error)
	Escalate(ctx context.Context, id domain.CaseID, action string, budgetHours int) (cases.Case, error)
}

// Monitor drives breach detection. Stateless between runs: each scan reads
// the current case set and reconstructs reminder provenance from the audit
// trail. Safe to run concurrently with actor-driven transitions; a case that
// moved between selection and mutation is simply skipped.
type Monitor struct {
	cases    CaseService
	auditor  *audit.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	redis    *redis.Client
	interval time.Duration
	tracer   trace.Tracer

	// Local fallback when redis is not configured; a redis lease covers the
	// multi-replica case.
	scanMu sync.Mutex
}

type MonitorOption func(*Monitor)

func WithMonitorMetrics(m *metrics.Metrics) MonitorOption {
	return func(mon *Monitor) { mon.metrics = m }
}

func WithRedis(client *redis.Client) MonitorOption {
	return func(mon *Monitor) { mon.redis = client }
}

func WithInterval(d time.Duration) MonitorOption {
	return func(mon *Monitor) { mon.interval = d }
}

func NewMonitor(svc CaseService, auditor *audit.Publisher, logger *slog.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		cases:    svc,
		auditor:  auditor,
		logger:   logger,
		interval: 5 * time.Minute,
		tracer:   otel.Tracer("recoup/sla"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Report summarizes one scan.
type Report struct {
	Checked  int             `json:"checked"`
	Breached []domain.CaseID `json:"breached"`
	Reminded []domain.CaseID `json:"reminded"`
	Skipped  int             `json:"skipped"`
}

// Run executes scans on a fixed cadence until the context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Scan(ctx); err != nil {
				m.logger.ErrorContext(ctx, "sla scan failed", "error", err.Error())
			}
		}
	}
}

// Scan runs one breach-detection pass. At most one scan runs at a time; a
// pass that cannot take the lease returns an empty report.
func (m *Monitor) Scan(ctx context.Context) (Report, error) {
	ctx, span := m.tracer.Start(ctx, "sla.scan")
	defer span.End()

	release, ok, err := m.acquire(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("acquire scan lease: %w", err)
	}
	if !ok {
		m.logger.DebugContext(ctx, "sla scan already in progress, skipping")
		return Report{}, nil
	}
	defer release()

	start := time.Now()
	defer func() {
		if m.metrics != nil {
			m.metrics.ScanDuration.Observe(time.Since(start).Seconds())
		}
	}()

	// Pin one "now" for the whole pass so every case is judged against the
	// same clock.
	now := requestcontext.Now(ctx)
	ctx = requestcontext.WithTime(ctx, now)

	candidates, err := m.cases.ListScannable(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list scannable cases: %w", err)
	}

	report := Report{Checked: len(candidates)}
	if m.metrics != nil {
		m.metrics.ScanCasesChecked.Add(float64(len(candidates)))
	}

	for _, c := range candidates {
		elapsed := now.Sub(c.UpdatedAt)

		if c.Priority == domain.PriorityMedium && elapsed >= reminderAfter && elapsed < reminderBefore {
			if m.remind(ctx, c, now) {
				report.Reminded = append(report.Reminded, c.ID)
			}
		}

		if elapsed > Budget(c.Priority) {
			switch m.escalate(ctx, c) {
			case escalated:
				report.Breached = append(report.Breached, c.ID)
			case skipped:
				report.Skipped++
			}
		}
	}

	m.logger.InfoContext(ctx, "sla scan complete",
		"checked", report.Checked,
		"breached", len(report.Breached),
		"reminded", len(report.Reminded),
		"skipped", report.Skipped,
	)
	return report, nil
}

type escalateResult int

const (
	escalated escalateResult = iota
	skipped
	failed
)

// escalate triggers the [SYS] breach transition. A case that moved to a
// terminal or paused state since selection fails the machine's validity check
// or the store precondition; both are graceful skips, never scan aborts.
func (m *Monitor) escalate(ctx context.Context, c cases.Case) escalateResult {
	action := EscalationActionFor(c.Priority)
	if _, err := m.cases.Escalate(ctx, c.ID, action, BudgetHours(c.Priority)); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) ||
			dErrors.HasCode(err, dErrors.CodeTerminalCase) ||
			dErrors.HasCode(err, dErrors.CodeConflict) ||
			dErrors.HasCode(err, dErrors.CodeNotFound) {
			m.logger.DebugContext(ctx, "case moved since selection, skipping escalation",
				"case_id", c.ID.String(),
				"error", err.Error(),
			)
			return skipped
		}
		m.logger.ErrorContext(ctx, "escalation failed",
			"case_id", c.ID.String(),
			"error", err.Error(),
		)
		return failed
	}
	if m.metrics != nil {
		m.metrics.SLABreaches.WithLabelValues(string(c.Priority)).Inc()
	}
	m.logger.WarnContext(ctx, "sla breach escalated",
		"case_id", c.ID.String(),
		"priority", string(c.Priority),
		"action", action,
	)
	return escalated
}

// remind emits the weekly touchpoint reminder for a stale MEDIUM case. The
// audit trail is the dedup record: one reminder per update window, keyed by
// the most recent reminder entry being newer than the case's UpdatedAt.
func (m *Monitor) remind(ctx context.Context, c cases.Case, now time.Time) bool {
	last, err := m.auditor.LastByCaseAction(ctx, c.ID, audit.ActionReminder)
	switch {
	case err == nil:
		if !last.Timestamp.Before(c.UpdatedAt) {
			return false // already reminded in this window
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// never reminded; fall through
	default:
		m.logger.ErrorContext(ctx, "reminder lookup failed",
			"case_id", c.ID.String(),
			"error", err.Error(),
		)
		return false
	}

	entry := audit.Entry{
		CaseID:    c.ID,
		ActorID:   audit.SystemActorID,
		Action:    audit.ActionReminder,
		Details:   "MEDIUM priority case requires weekly touchpoint",
		Timestamp: now,
	}
	if err := m.auditor.Emit(ctx, entry); err != nil {
		m.logger.ErrorContext(ctx, "failed to record reminder",
			"case_id", c.ID.String(),
			"error", err.Error(),
		)
		return false
	}
	if m.metrics != nil {
		m.metrics.Reminders.Inc()
	}
	return true
}

func (m *Monitor) acquire(ctx context.Context) (release func(), ok bool, err error) {
	if m.redis != nil {
		ttl := m.interval
		if ttl < time.Minute {
			ttl = time.Minute
		}
		got, err := m.redis.AcquireLease(ctx, scanLeaseKey, ttl)
		if err != nil {
			return nil, false, err
		}
		if !got {
			return nil, false, nil
		}
		return func() {
			if err := m.redis.ReleaseLease(context.WithoutCancel(ctx), scanLeaseKey); err != nil {
				m.logger.WarnContext(ctx, "failed to release scan lease", "error", err.Error())
			}
		}, true, nil
	}
	if !m.scanMu.TryLock() {
		return nil, false, nil
	}
	return m.scanMu.Unlock, true, nil
}
