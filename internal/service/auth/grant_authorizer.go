package auth

import (
	"context"
	"fmt"
	"log/slog"

	"campus/internal/authz"
	"campus/internal/domain/models"
	"campus/internal/domain/repositories"
)

// GrantAuthorizer resolves a caller's role grants and evaluates capability
// checks against the hierarchy index.
//
// The default Can uses the eventually consistent index: a check issued
// immediately after a move may see the previous ancestry for one feed
// cycle. CanStrong walks parent links in the store instead, for
// security-critical call sites that cannot tolerate that window.
type GrantAuthorizer struct {
	grantRepo repositories.GrantRepository
	itemRepo  repositories.ItemRepository
	evaluator *authz.Evaluator
	logger    *slog.Logger
}

// NewGrantAuthorizer creates a new grant-based authorizer
func NewGrantAuthorizer(
	grantRepo repositories.GrantRepository,
	itemRepo repositories.ItemRepository,
	evaluator *authz.Evaluator,
	logger *slog.Logger,
) *GrantAuthorizer {
	return &GrantAuthorizer{
		grantRepo: grantRepo,
		itemRepo:  itemRepo,
		evaluator: evaluator,
		logger:    logger,
	}
}

// LoadUser assembles the evaluator's view of a caller: identity plus grants
func (a *GrantAuthorizer) LoadUser(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, nil
	}

	grants, err := a.grantRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load grants: %w", err)
	}

	return &models.User{ID: userID, Grants: grants}, nil
}

// Can loads the caller's grants and evaluates the capability on the item
func (a *GrantAuthorizer) Can(ctx context.Context, userID, capability string, itemID *string) (bool, error) {
	user, err := a.LoadUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return a.evaluator.Can(user, capability, itemID), nil
}

// CanAddContent reports whether any add-family capability applies at parent
func (a *GrantAuthorizer) CanAddContent(ctx context.Context, userID string, parentID *string) (bool, error) {
	user, err := a.LoadUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return a.evaluator.CanAddContent(user, parentID), nil
}

// CanStrong evaluates the capability against ancestry read synchronously
// from the store, bypassing the index and its staleness window.
func (a *GrantAuthorizer) CanStrong(ctx context.Context, userID, capability string, itemID *string) (bool, error) {
	user, err := a.LoadUser(ctx, userID)
	if err != nil {
		return false, err
	}

	if itemID == nil {
		return a.evaluator.Can(user, capability, nil), nil
	}

	walker := &storeAncestors{ctx: ctx, itemRepo: a.itemRepo}
	return authz.NewEvaluator(a.evaluator.Registry(), walker).Can(user, capability, itemID), nil
}

// storeAncestors implements authz.AncestorReader by walking parent links in
// the store. Used only by CanStrong; every call costs one read per ancestor.
type storeAncestors struct {
	ctx      context.Context
	itemRepo repositories.ItemRepository
}

func (w *storeAncestors) Ancestors(id string) ([]string, bool) {
	var reversed []string
	visited := map[string]bool{id: true}

	cursor, err := w.itemRepo.GetParentID(w.ctx, id)
	if err != nil {
		return nil, false
	}

	for cursor != nil {
		if visited[*cursor] {
			break
		}
		visited[*cursor] = true
		reversed = append(reversed, *cursor)

		cursor, err = w.itemRepo.GetParentID(w.ctx, *cursor)
		if err != nil {
			return nil, false
		}
	}

	// Walked nearest-parent first; the evaluator expects root-first.
	path := make([]string, len(reversed))
	for i := range reversed {
		path[i] = reversed[len(reversed)-1-i]
	}
	return path, true
}
