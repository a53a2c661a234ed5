package tenant

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes company membership management.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler constructs the handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// MountRoutes attaches the membership endpoints. Runs behind the tenant
// middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/companies", h.companies)
	r.Post("/members/roles", h.assignRole)
	r.Delete("/members/{userID}/roles/{role}", h.revokeRole)
}

func (h *Handler) operation(w http.ResponseWriter, r *http.Request) (shared.OperationContext, bool) {
	op, ok := shared.OperationFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "authentication required")
		return shared.OperationContext{}, false
	}
	return op, true
}

func (h *Handler) companies(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	ids, err := h.svc.Companies(r.Context(), op)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"company_ids": ids})
}

type assignRoleRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.AssignRole(r.Context(), op, req.UserID, req.Role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "role assigned")
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	op, ok := h.operation(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		httpx.RespondError(w, &shared.ValidationError{Field: "userID", Reason: "must be a positive integer"})
		return
	}
	role := chi.URLParam(r, "role")
	if err := h.svc.RevokeRole(r.Context(), op, userID, role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "role revoked")
}
