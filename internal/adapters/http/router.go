package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/LeviathanIsI/barkbase-sub006/internal/application"
	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

const (
	tenantHeader = "X-Tenant-ID"
	actorHeader  = "X-Actor-ID"
)

type contextKey string

const callerKey contextKey = "caller"

// caller is the already-authenticated identity the upstream auth layer
// forwards via headers.
type caller struct {
	Tenant uuid.UUID
	Actor  uuid.UUID
}

type Handler struct {
	engine   *application.Engine
	validate *validator.Validate
}

func NewRouter(engine *application.Engine) http.Handler {
	h := &Handler{engine: engine, validate: validator.New()}
	r := chi.NewRouter()

	r.Route("/api", func(api chi.Router) {
		api.Use(h.requireCaller)

		api.Post("/dependencies/discover", h.handleDiscover)
		api.Get("/graph", h.handleGraph)
		api.Get("/cycles", h.handleCycles)
		api.Post("/impact", h.handleImpact)
		api.Post("/cascade", h.handleCascade)
		api.Get("/audits", h.handleAudits)

		api.Route("/lifecycle", func(lc chi.Router) {
			lc.Post("/soft-delete", h.handleSoftDelete)
			lc.Post("/restore", h.handleRestore)
			lc.Post("/restoration-requests", h.handleRequestRestoration)
			lc.Post("/restoration-requests/{id}/approve", h.handleApproveRestoration)
			lc.Post("/restoration-requests/{id}/reject", h.handleRejectRestoration)
		})
	})

	return r
}

func (h *Handler) requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := uuid.Parse(strings.TrimSpace(r.Header.Get(tenantHeader)))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing or invalid " + tenantHeader})
			return
		}
		actor, err := uuid.Parse(strings.TrimSpace(r.Header.Get(actorHeader)))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing or invalid " + actorHeader})
			return
		}
		c := caller{Tenant: tenant, Actor: actor}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, c)))
	})
}

func callerFrom(r *http.Request) caller {
	c, _ := r.Context().Value(callerKey).(caller)
	return c
}

func (h *Handler) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID *uuid.UUID `json:"property_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c := callerFrom(r)
	count, err := h.engine.DiscoverDependencies(r.Context(), c.Tenant, req.PropertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges_written": count})
}

func (h *Handler) handleGraph(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	rootID, err := uuid.Parse(r.URL.Query().Get("property_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing or invalid property_id"})
		return
	}
	direction := domain.Direction(r.URL.Query().Get("direction"))
	if direction == "" {
		direction = domain.DirectionDownstream
	}
	depth := 0
	if raw := r.URL.Query().Get("depth"); raw != "" {
		if depth, err = strconv.Atoi(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid depth"})
			return
		}
	}
	graph, err := h.engine.BuildGraph(r.Context(), c.Tenant, rootID, direction, depth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

func (h *Handler) handleCycles(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	cycles, err := h.engine.DetectCycles(r.Context(), c.Tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

func (h *Handler) handleAudits(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r)
	propertyID, err := uuid.Parse(r.URL.Query().Get("property_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing or invalid property_id"})
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
	}
	audits, err := h.engine.ChangeHistory(r.Context(), c.Tenant, propertyID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audits": audits})
}

func (h *Handler) handleImpact(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID       uuid.UUID `json:"property_id" validate:"required"`
		ModificationType string    `json:"modification_type" validate:"required,oneof=delete type_change archive"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c := callerFrom(r)
	imp, err := h.engine.AnalyzeImpact(r.Context(), c.Tenant, req.PropertyID, domain.ModificationType(req.ModificationType))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, imp)
}

func (h *Handler) handleCascade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID uuid.UUID             `json:"property_id" validate:"required"`
		Operation  string                `json:"operation" validate:"required,oneof=archive delete"`
		Strategy   string                `json:"strategy" validate:"required,oneof=cancel cascade substitute force"`
		Options    domain.CascadeOptions `json:"options"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c := callerFrom(r)
	result, err := h.engine.ExecuteCascade(r.Context(), c.Tenant, c.Actor, req.PropertyID,
		domain.CascadeStrategy(req.Strategy), domain.CascadeOperation(req.Operation), req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSoftDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID uuid.UUID `json:"property_id" validate:"required"`
		Reason     string    `json:"reason"`
		Confirmed  bool      `json:"confirmed"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c := callerFrom(r)
	result, err := h.engine.SoftDelete(r.Context(), c.Tenant, c.Actor, req.PropertyID, req.Reason, req.Confirmed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID uuid.UUID `json:"property_id" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c := callerFrom(r)
	result, err := h.engine.RestoreSoftDeleted(r.Context(), c.Tenant, c.Actor, req.PropertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRequestRestoration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PropertyID uuid.UUID `json:"property_id" validate:"required"`
		Reason     string    `json:"reason" validate:"required"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c := callerFrom(r)
	out, err := h.engine.RequestArchiveRestoration(r.Context(), c.Tenant, c.Actor, req.PropertyID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func requestID(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	return uint(id), err == nil
}

func (h *Handler) handleApproveRestoration(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request id"})
		return
	}
	c := callerFrom(r)
	result, err := h.engine.ApproveArchiveRestoration(r.Context(), c.Tenant, c.Actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRejectRestoration(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request id"})
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	c := callerFrom(r)
	out, err := h.engine.RejectArchiveRestoration(r.Context(), c.Tenant, c.Actor, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	var (
		blocked      *domain.BlockedError
		confirmation *domain.ConfirmationRequiredError
		validation   *domain.ValidationError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "operation is not allowed for this property"})
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "blocked", "blockers": blocked.Blockers})
	case errors.As(err, &confirmation):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    "confirmation required",
			"warnings": confirmation.Warnings,
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": validation.Message})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
