// Package handler exposes case lifecycle operations over HTTP. It stays thin:
// parse, delegate, translate.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recoup/internal/audit"
	"recoup/internal/cases"
	"recoup/internal/platform/middleware"
	"recoup/pkg/domain"
	dErrors "recoup/pkg/domain-errors"
	"recoup/pkg/platform/httputil"
	"recoup/pkg/requestcontext"
)

// Service defines the case operations the transport needs.
type Service interface {
	Get(ctx context.Context, id domain.CaseID) (cases.Case, error)
	List(ctx context.Context) ([]cases.Case, error)
	Assign(ctx context.Context, id domain.CaseID, actor, agencyID string) (cases.Case, error)
	Accept(ctx context.Context, id domain.CaseID, actor string) (cases.Case, error)
	Reject(ctx context.Context, id domain.CaseID, actor, reason, agencyID string) (cases.Case, error)
	LogPTP(ctx context.Context, id domain.CaseID, actor string) (cases.Case, error)
	RaiseDispute(ctx context.Context, id domain.CaseID, actor, reason string) (cases.Case, error)
	ResolveDispute(ctx context.Context, id domain.CaseID, actor string) (cases.Case, error)
	AcceptProof(ctx context.Context, id domain.CaseID, actor, evidenceRef string) (cases.Case, error)
	Close(ctx context.Context, id domain.CaseID, actor, reason string) (cases.Case, error)
	PauseSLA(ctx context.Context, id domain.CaseID, actor string) (cases.Case, error)
	ResumeSLA(ctx context.Context, id domain.CaseID, actor string) (cases.Case, error)
}

// AuditReader serves the per-case trail.
type AuditReader interface {
	ListByCase(ctx context.Context, caseID domain.CaseID) ([]audit.Entry, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
	trail  AuditReader
}

func New(svc Service, trail AuditReader, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc, trail: trail}
}

// Register mounts the case routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cases", h.handleList)
	r.Get("/cases/{id}", h.handleGet)
	r.Get("/cases/{id}/audit", h.handleAuditTrail)
	r.Post("/cases/{id}/assign", h.handleAssign)
	r.Post("/cases/{id}/accept", h.handleAccept)
	r.Post("/cases/{id}/reject", h.handleReject)
	r.Post("/cases/{id}/ptp", h.handlePTP)
	r.Post("/cases/{id}/dispute", h.handleDispute)
	r.Post("/cases/{id}/resolve", h.handleResolve)
	r.Post("/cases/{id}/proof", h.handleProof)
	r.Post("/cases/{id}/close", h.handleClose)
	r.Post("/cases/{id}/sla/pause", h.handlePauseSLA)
	r.Post("/cases/{id}/sla/resume", h.handleResumeSLA)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeFailure(w, r, "list cases", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, "get case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caseID(w, r)
	if !ok {
		return
	}
	// Existence check first so an unknown case is a 404, not an empty trail.
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		h.writeFailure(w, r, "get case", err)
		return
	}
	entries, err := h.trail.ListByCase(r.Context(), id)
	if err != nil {
		h.writeFailure(w, r, "list audit trail", err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

type assignRequest struct {
	AgencyID string `json:"agency_id"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.Assign(r.Context(), id, actor, req.AgencyID)
	if err != nil {
		h.writeFailure(w, r, "assign case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Accept(r.Context(), id, actor)
	if err != nil {
		h.writeFailure(w, r, "accept case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

type rejectRequest struct {
	Reason   string `json:"reason"`
	AgencyID string `json:"agency_id"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.Reject(r.Context(), id, actor, req.Reason, req.AgencyID)
	if err != nil {
		h.writeFailure(w, r, "reject case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handlePTP(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	c, err := h.svc.LogPTP(r.Context(), id, actor)
	if err != nil {
		h.writeFailure(w, r, "log promise to pay", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleDispute(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.RaiseDispute(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeFailure(w, r, "raise dispute", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	c, err := h.svc.ResolveDispute(r.Context(), id, actor)
	if err != nil {
		h.writeFailure(w, r, "resolve dispute", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

type proofRequest struct {
	EvidenceRef string `json:"evidence_ref"`
}

func (h *Handler) handleProof(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	var req proofRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.AcceptProof(r.Context(), id, actor, req.EvidenceRef)
	if err != nil {
		h.writeFailure(w, r, "accept proof of payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.svc.Close(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeFailure(w, r, "close case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handlePauseSLA(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	c, err := h.svc.PauseSLA(r.Context(), id, actor)
	if err != nil {
		h.writeFailure(w, r, "pause sla", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleResumeSLA(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := h.caseIDAndActor(w, r)
	if !ok {
		return
	}
	c, err := h.svc.ResumeSLA(r.Context(), id, actor)
	if err != nil {
		h.writeFailure(w, r, "resume sla", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (domain.CaseID, bool) {
	id, err := domain.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid case id"))
		return domain.CaseID{}, false
	}
	return id, true
}

func (h *Handler) caseIDAndActor(w http.ResponseWriter, r *http.Request) (domain.CaseID, string, bool) {
	id, ok := h.caseID(w, r)
	if !ok {
		return domain.CaseID{}, "", false
	}
	actor := requestcontext.ActorID(r.Context())
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "X-Actor-ID header is required"))
		return domain.CaseID{}, "", false
	}
	return id, actor, true
}

// decode tolerates an empty body; fields validate downstream.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "case operation failed",
			"operation", op,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
