package repositories

import (
	"context"

	"campus/internal/domain/models"
)

// GrantRepository defines data access operations for role grants. The
// evaluator only reads; writes come from the grant admin surface.
type GrantRepository interface {
	// Create inserts a new grant. ID and timestamp are filled in on return.
	Create(ctx context.Context, grant *models.RoleGrant) error

	// Delete removes a grant by ID
	Delete(ctx context.Context, id string) error

	// ListByUser returns all grants held by a user
	ListByUser(ctx context.Context, userID string) ([]models.RoleGrant, error)

	// List returns every grant (admin surface)
	List(ctx context.Context) ([]models.RoleGrant, error)
}
