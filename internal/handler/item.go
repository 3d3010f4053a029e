package handler

import (
	"log/slog"
	"net/http"

	"campus/internal/domain/models"
	"campus/internal/domain/services"
	"campus/internal/httputil"
)

// ItemHandler handles content tree HTTP requests
type ItemHandler struct {
	contentService services.ContentService
	authorizer     services.CapabilityAuthorizer
	logger         *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(
	contentService services.ContentService,
	authorizer services.CapabilityAuthorizer,
	logger *slog.Logger,
) *ItemHandler {
	return &ItemHandler{
		contentService: contentService,
		authorizer:     authorizer,
		logger:         logger,
	}
}

// addCapabilityForType maps an item type to the capability that gates its
// creation.
func addCapabilityForType(t models.ItemType) string {
	switch t {
	case models.ItemTypeFolder:
		return "canAddFolder"
	case models.ItemTypeLevel, models.ItemTypeSemester, models.ItemTypeSubject:
		return "canAddClass"
	case models.ItemTypeFile, models.ItemTypeNote:
		return "canUploadFile"
	case models.ItemTypeLink:
		return "canAddLink"
	case models.ItemTypeQuiz, models.ItemTypeExam:
		return "canAdministerExams"
	case models.ItemTypeFlashcard:
		return "canAdministerFlashcards"
	default:
		return ""
	}
}

// authorize runs a capability check and writes the 403 on failure. Returns
// true when the request may proceed.
func (h *ItemHandler) authorize(w http.ResponseWriter, r *http.Request, capability string, itemID *string, strong bool) bool {
	userID := httputil.GetUserID(r)

	check := h.authorizer.Can
	if strong {
		check = h.authorizer.CanStrong
	}

	allowed, err := check(r.Context(), userID, capability, itemID)
	if err != nil {
		handleError(w, err)
		return false
	}
	if !allowed {
		httputil.RespondError(w, http.StatusForbidden, "permission denied")
		return false
	}
	return true
}

// CreateItem creates a new item under a parent
// POST /api/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req services.CreateItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	capability := addCapabilityForType(req.Type)
	if capability == "" {
		httputil.RespondError(w, http.StatusBadRequest, "unknown item type")
		return
	}
	if !h.authorize(w, r, capability, req.ParentID, false) {
		return
	}

	item, err := h.contentService.CreateItem(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// updateItemRequest is a rename and/or move. ParentID is tri-state: absent
// means no move, JSON null means move to root, a value is the destination.
type updateItemRequest struct {
	Name     *string                 `json:"name,omitempty"`
	ParentID httputil.OptionalString `json:"parent_id"`
}

// UpdateItem renames and/or moves an item
// PATCH /api/items/{id}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil && !req.ParentID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	var item *models.Item

	if req.Name != nil {
		if !h.authorize(w, r, "canRename", &id, false) {
			return
		}
		renamed, err := h.contentService.Rename(r.Context(), id, *req.Name)
		if err != nil {
			handleError(w, err)
			return
		}
		item = renamed
	}

	if req.ParentID.Present {
		// Moves re-anchor the item's ancestry, so the check cannot rely on
		// the eventually consistent index.
		if !h.authorize(w, r, "canMove", &id, true) {
			return
		}

		moved, err := h.contentService.Move(r.Context(), id, req.ParentID.Value)
		if err != nil {
			handleError(w, err)
			return
		}
		item = moved
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// copyRequest selects the destination of a copy. ParentID is tri-state:
// absent duplicates next to the source, JSON null copies to root, a value is
// the destination.
type copyRequest struct {
	ParentID httputil.OptionalString `json:"parent_id"`
}

// CopyItem duplicates an item (and its subtree) under a destination
// POST /api/items/{id}/copy
func (h *ItemHandler) CopyItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req copyRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.authorize(w, r, "canCopy", &id, false) {
		return
	}

	dest := req.ParentID.Value
	if !req.ParentID.Present {
		source, err := h.contentService.GetByID(r.Context(), id)
		if err != nil {
			handleError(w, err)
			return
		}
		dest = source.ParentID
	}

	item, err := h.contentService.Copy(r.Context(), id, dest)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, item)
}

// DeleteItem removes an item and its whole subtree
// DELETE /api/items/{id}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	// Deletion is destructive; check against live store ancestry
	if !h.authorize(w, r, "canDelete", &id, true) {
		return
	}

	if err := h.contentService.Delete(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setOrderRequest carries the new sibling order
type setOrderRequest struct {
	OrderedIDs []string `json:"ordered_ids"`
}

// SetOrder rewrites the order of a parent's children
// PUT /api/items/{parentID}/order
func (h *ItemHandler) SetOrder(w http.ResponseWriter, r *http.Request) {
	var parentID *string
	if raw := r.PathValue("parentID"); raw != "root" {
		id, err := parseUUID(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid parent ID")
			return
		}
		parentID = &id
	}

	var req setOrderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.authorize(w, r, "canReorder", parentID, false) {
		return
	}

	if err := h.contentService.SetOrder(r.Context(), parentID, req.OrderedIDs); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleVisibility flips an item's hidden flag
// POST /api/items/{id}/visibility
func (h *ItemHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if !h.authorize(w, r, "canToggleVisibility", &id, false) {
		return
	}

	hidden, err := h.contentService.ToggleHidden(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]bool{"is_hidden": hidden})
}

// capabilityForPatch picks the capability that gates a metadata patch based
// on which fields it touches.
func capabilityForPatch(patch *models.MetadataPatch) string {
	switch {
	case patch == nil:
		return "canRename"
	case patch.Icon != nil:
		return "canChangeIcon"
	case patch.File != nil:
		return "canUpdateFile"
	case patch.Interactive != nil:
		return "canCreateQuestions"
	case patch.IsHidden != nil:
		return "canToggleVisibility"
	default:
		return "canRename"
	}
}

// PatchMetadata merges a partial metadata update into an item
// PATCH /api/items/{id}/metadata
func (h *ItemHandler) PatchMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var patch models.MetadataPatch
	if err := httputil.ParseJSON(w, r, &patch); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.authorize(w, r, capabilityForPatch(&patch), &id, false) {
		return
	}

	item, err := h.contentService.PatchMetadata(r.Context(), id, &patch)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// GetItem retrieves a single item
// GET /api/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.contentService.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, item)
}

// GetChildren lists the immediate children of an item
// GET /api/items/{id}/children
func (h *ItemHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	children, err := h.contentService.GetChildren(r.Context(), &id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, children)
}

// GetRoots lists the top-level items
// GET /api/items/roots
func (h *ItemHandler) GetRoots(w http.ResponseWriter, r *http.Request) {
	roots, err := h.contentService.GetChildren(r.Context(), nil)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, roots)
}
