//go:build integration

package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	adminhandler "recoup/internal/admin/handler"
	"recoup/internal/audit"
	"recoup/internal/cases"
	"recoup/internal/invoice"
	"recoup/pkg/domain"
	"recoup/pkg/testutil/containers"
)

// TestResetWipesAllTablesWithCasesPresent drives the reset endpoint against a
// real schema. Cases reference invoices through a foreign key, so the wipe
// only succeeds when stores are reset in dependency order: audit log first,
// then cases, then invoices.
func TestResetWipesAllTablesWithCasesPresent(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	invoiceStore := invoice.NewPostgres(pg.DB)
	caseStore := cases.NewPostgres(pg.DB)
	auditStore := audit.NewPostgres(pg.DB)

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	inv := invoice.Invoice{
		ID:        domain.NewInvoiceID(),
		Number:    "INV-RESET-1",
		Amount:    900,
		DueDate:   now.AddDate(0, 0, -30),
		Region:    domain.RegionEMEA,
		Status:    invoice.StatusOpen,
		CreatedAt: now,
	}
	require.NoError(t, invoiceStore.CreateIfNumberAvailable(ctx, inv))

	c := cases.Case{
		ID:        domain.NewCaseID(),
		InvoiceID: inv.ID,
		Status:    cases.StatusNew,
		Priority:  domain.PriorityMedium,
		SLAStatus: cases.SLAPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, caseStore.Create(ctx, c))
	require.NoError(t, auditStore.Append(ctx, audit.Entry{
		CaseID:    c.ID,
		ActorID:   "agent-1",
		Action:    audit.ActionCaseCreated,
		Timestamp: now,
	}))

	router := chi.NewRouter()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := adminhandler.New(log, auditStore, caseStore, invoiceStore)
	h.Register(router)

	req := httptest.NewRequest(http.MethodPost, "/admin/reset", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	for _, table := range []string{"audit_log", "cases", "invoices"} {
		var count int
		require.NoError(t, pg.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count))
		require.Zerof(t, count, "table %s not wiped", table)
	}
}
