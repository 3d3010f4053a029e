package services

import (
	"context"

	"campus/internal/domain/models"
)

// ContentService is the sole writer of the content tree. Every mutation runs
// as one unit of work against the backing engine and upholds the structural
// invariants: acyclicity, parent existence, and sibling order consistency.
type ContentService interface {
	// CreateItem creates an item appended to the end of its siblings
	CreateItem(ctx context.Context, req *CreateItemRequest) (*models.Item, error)

	// Rename updates an item's display name
	Rename(ctx context.Context, id, name string) (*models.Item, error)

	// Move re-parents an item, appending it to the destination's children.
	// Fails with ErrInvalidOperation when the destination is the item itself
	// or any of its descendants.
	Move(ctx context.Context, id string, newParentID *string) (*models.Item, error)

	// Copy duplicates an item and, for containers, its whole subtree, with
	// fresh IDs throughout. Only the copied root is renamed "<name> (Copy)".
	Copy(ctx context.Context, id string, newParentID *string) (*models.Item, error)

	// Delete removes an item and every transitive descendant as one unit of
	// work.
	Delete(ctx context.Context, id string) error

	// SetOrder rewrites the sort key of each listed child to its index in
	// the slice. Unlisted siblings keep their order.
	SetOrder(ctx context.Context, parentID *string, orderedIDs []string) error

	// ToggleHidden flips the visibility flag, returning the new value
	ToggleHidden(ctx context.Context, id string) (bool, error)

	// PatchMetadata merges a partial metadata update under read-your-writes
	PatchMetadata(ctx context.Context, id string, patch *models.MetadataPatch) (*models.Item, error)

	// GetChildren lists immediate children ordered by sort key
	GetChildren(ctx context.Context, parentID *string) ([]models.Item, error)

	// GetByID retrieves a single item
	GetByID(ctx context.Context, id string) (*models.Item, error)
}

// CreateItemRequest represents an item creation request
type CreateItemRequest struct {
	ParentID *string          `json:"parent_id,omitempty"` // null for root level
	Name     string           `json:"name"`
	Type     models.ItemType  `json:"type"`
	Metadata *models.Metadata `json:"metadata,omitempty"`
}

// SnapshotPublisher receives the full item-stub snapshot after every
// committed mutation. The hierarchy index consumes it asynchronously.
type SnapshotPublisher interface {
	Publish(stubs []models.ItemStub)
}

// Notifier is the side channel toward UI collaborators: children-changed
// events for list refresh and access-denied reports for the permission
// toast. Delivery is best-effort; mutations never fail on notifier errors.
type Notifier interface {
	ChildrenChanged(ctx context.Context, parentID *string)
	AccessDenied(ctx context.Context, operation string, itemID string)
}
