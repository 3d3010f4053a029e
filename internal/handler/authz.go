package handler

import (
	"log/slog"
	"net/http"

	"campus/internal/domain/services"
	"campus/internal/httputil"
)

// AuthzHandler exposes permission checks to UI collaborators so they can
// grey out or hide affordances before attempting a mutation.
type AuthzHandler struct {
	authorizer services.CapabilityAuthorizer
	logger     *slog.Logger
}

// NewAuthzHandler creates a new authorization query handler
func NewAuthzHandler(authorizer services.CapabilityAuthorizer, logger *slog.Logger) *AuthzHandler {
	return &AuthzHandler{
		authorizer: authorizer,
		logger:     logger,
	}
}

// optionalItemID reads an optional UUID query parameter
func optionalItemID(w http.ResponseWriter, r *http.Request, key string) (*string, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, true
	}
	id, err := parseUUID(raw)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid "+key)
		return nil, false
	}
	return &id, true
}

// Can answers a single capability check
// GET /api/authz/can?capability=...&item_id=...
func (h *AuthzHandler) Can(w http.ResponseWriter, r *http.Request) {
	capability := r.URL.Query().Get("capability")
	if capability == "" {
		httputil.RespondError(w, http.StatusBadRequest, "capability is required")
		return
	}

	itemID, ok := optionalItemID(w, r, "item_id")
	if !ok {
		return
	}

	allowed, err := h.authorizer.Can(r.Context(), httputil.GetUserID(r), capability, itemID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

// CanAdd answers whether the Add affordance applies at a parent
// GET /api/authz/can-add?parent_id=...
func (h *AuthzHandler) CanAdd(w http.ResponseWriter, r *http.Request) {
	parentID, ok := optionalItemID(w, r, "parent_id")
	if !ok {
		return
	}

	allowed, err := h.authorizer.CanAddContent(r.Context(), httputil.GetUserID(r), parentID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}
