package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"campus/internal/capabilities"
	"campus/internal/domain/models"
	"campus/internal/domain/repositories"
	"campus/internal/domain/services"
	"campus/internal/httputil"
)

// GrantHandler is the grant administration surface. Every endpoint is
// guarded by the canAccessAdminPanel page capability.
type GrantHandler struct {
	grantRepo  repositories.GrantRepository
	authorizer services.CapabilityAuthorizer
	registry   *capabilities.Registry
	logger     *slog.Logger
}

// NewGrantHandler creates a new grant admin handler
func NewGrantHandler(
	grantRepo repositories.GrantRepository,
	authorizer services.CapabilityAuthorizer,
	registry *capabilities.Registry,
	logger *slog.Logger,
) *GrantHandler {
	return &GrantHandler{
		grantRepo:  grantRepo,
		authorizer: authorizer,
		registry:   registry,
		logger:     logger,
	}
}

// requireAdmin gates the admin surface. Returns true when the caller holds
// canAccessAdminPanel.
func (h *GrantHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	allowed, err := h.authorizer.Can(r.Context(), httputil.GetUserID(r), "canAccessAdminPanel", nil)
	if err != nil {
		handleError(w, err)
		return false
	}
	if !allowed {
		httputil.RespondError(w, http.StatusForbidden, "admin panel access required")
		return false
	}
	return true
}

// createGrantRequest is the payload for creating a grant
type createGrantRequest struct {
	UserID      string           `json:"user_id"`
	Role        models.Role      `json:"role"`
	ScopeKind   models.ScopeKind `json:"scope_kind"`
	ScopeID     *string          `json:"scope_id,omitempty"`
	Permissions []string         `json:"permissions"`
}

func (req *createGrantRequest) validate(registry *capabilities.Registry) error {
	if err := validation.Validate(req.UserID, validation.Required, validation.Length(1, 255)); err != nil {
		return err
	}
	if err := validation.Validate(string(req.Role),
		validation.Required,
		validation.In(string(models.RoleSuperAdmin), string(models.RoleSubAdmin)),
	); err != nil {
		return err
	}
	if req.Role == models.RoleSuperAdmin {
		// Super-admin grants carry no scope or permission list
		return nil
	}
	if err := validation.Validate(string(req.ScopeKind),
		validation.Required,
		validation.In(
			string(models.ScopeGlobal),
			string(models.ScopeLevel),
			string(models.ScopeSemester),
			string(models.ScopeSubject),
			string(models.ScopeFolder),
		),
	); err != nil {
		return err
	}
	if req.ScopeKind != models.ScopeGlobal && req.ScopeID == nil {
		return validation.NewError("validation_scope_id", "scope_id is required for non-global scopes")
	}
	if len(req.Permissions) == 0 {
		return validation.NewError("validation_permissions", "permissions must not be empty")
	}
	for _, p := range req.Permissions {
		if !registry.Known(p) {
			return validation.NewError("validation_permissions", "unknown capability "+p)
		}
	}
	return nil
}

// CreateGrant adds a role grant
// POST /api/grants
func (h *GrantHandler) CreateGrant(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var req createGrantRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(h.registry); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	grant := &models.RoleGrant{
		UserID:      req.UserID,
		Role:        req.Role,
		ScopeKind:   req.ScopeKind,
		ScopeID:     req.ScopeID,
		Permissions: req.Permissions,
	}
	if err := h.grantRepo.Create(r.Context(), grant); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("grant created",
		"id", grant.ID,
		"user_id", grant.UserID,
		"role", grant.Role,
		"scope_kind", grant.ScopeKind,
	)

	httputil.RespondJSON(w, http.StatusCreated, grant)
}

// DeleteGrant removes a role grant
// DELETE /api/grants/{id}
func (h *GrantHandler) DeleteGrant(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.grantRepo.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("grant deleted", "id", id)

	w.WriteHeader(http.StatusNoContent)
}

// ListGrants lists grants, optionally filtered by user
// GET /api/grants?user_id=...
func (h *GrantHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		grants, err := h.grantRepo.ListByUser(r.Context(), userID)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, grants)
		return
	}

	grants, err := h.grantRepo.List(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, grants)
}
