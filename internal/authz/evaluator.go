// Package authz decides, per user, per item, per capability, whether an
// action is permitted. The evaluator is a pure function of the caller's role
// grants, the requested capability, and the current ancestry cache; it holds
// no mutable state of its own.
package authz

import (
	"campus/internal/capabilities"
	"campus/internal/domain/models"
)

// AncestorReader is the evaluator's view of the hierarchy index
type AncestorReader interface {
	// Ancestors returns the ancestor path of an item, root-first, excluding
	// the item itself, and whether the item is known.
	Ancestors(id string) ([]string, bool)
}

// Evaluator resolves scope-inherited role grants against the hierarchy
type Evaluator struct {
	registry *capabilities.Registry
	index    AncestorReader
}

// NewEvaluator creates an evaluator over the given vocabulary and index
func NewEvaluator(registry *capabilities.Registry, index AncestorReader) *Evaluator {
	return &Evaluator{
		registry: registry,
		index:    index,
	}
}

// Registry returns the capability vocabulary the evaluator enforces
func (e *Evaluator) Registry() *capabilities.Registry {
	return e.registry
}

// Can reports whether the user may exercise the capability on the item.
// itemID nil means the check targets the tree root (e.g. adding a top-level
// level), which only a global-scoped grant authorizes.
//
// Scope is subtree-inclusive: a grant rooted at a folder authorizes actions
// on the folder itself as well as everything beneath it.
func (e *Evaluator) Can(user *models.User, capability string, itemID *string) bool {
	if user == nil {
		return false
	}
	if user.IsSuperAdmin() {
		return true
	}
	if !e.registry.Known(capability) {
		return false
	}

	// Page-level capabilities are not anchored to an item: any grant
	// carrying the capability suffices, regardless of scope.
	if e.registry.IsPageLevel(capability) {
		for i := range user.Grants {
			if user.Grants[i].Role == models.RoleSubAdmin && user.Grants[i].HasPermission(capability) {
				return true
			}
		}
		return false
	}

	matching := matchingGrants(user, capability)
	if len(matching) == 0 {
		return false
	}

	for _, grant := range matching {
		if grant.ScopeKind == models.ScopeGlobal {
			return true
		}
	}

	// Only global scope authorizes root-level mutation
	if itemID == nil {
		return false
	}

	ancestors, known := e.index.Ancestors(*itemID)
	if !known {
		return false
	}

	// Path is ancestors plus the item itself
	onPath := make(map[string]bool, len(ancestors)+1)
	for _, id := range ancestors {
		onPath[id] = true
	}
	onPath[*itemID] = true

	for _, grant := range matching {
		if grant.ScopeID != nil && onPath[*grant.ScopeID] {
			return true
		}
	}

	return false
}

// CanAddContent reports whether the user holds any capability of the add
// family for the given parent, i.e. whether an Add affordance should be
// offered there at all.
func (e *Evaluator) CanAddContent(user *models.User, parentID *string) bool {
	for _, capability := range e.registry.AddFamily() {
		if e.Can(user, capability, parentID) {
			return true
		}
	}
	return false
}

// matchingGrants returns the user's sub-admin grants that carry the
// capability.
func matchingGrants(user *models.User, capability string) []models.RoleGrant {
	var matching []models.RoleGrant
	for i := range user.Grants {
		grant := user.Grants[i]
		if grant.Role != models.RoleSubAdmin {
			continue
		}
		if grant.HasPermission(capability) {
			matching = append(matching, grant)
		}
	}
	return matching
}
