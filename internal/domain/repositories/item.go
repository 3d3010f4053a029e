package repositories

import (
	"context"

	"campus/internal/domain/models"
)

// ItemRepository defines data access operations for content items. All
// methods participate in an ambient transaction when one is present in the
// context (see DBTX / GetTx).
type ItemRepository interface {
	// Create inserts a new item. ID and timestamps are filled in on return.
	Create(ctx context.Context, item *models.Item) error

	// CreateBatch inserts a set of pre-built items (IDs already assigned).
	// Used by copy so the whole duplicated subtree lands in one unit of work.
	CreateBatch(ctx context.Context, items []*models.Item) error

	// GetByID retrieves an item by ID
	GetByID(ctx context.Context, id string) (*models.Item, error)

	// GetParentID returns the parent of an item without loading the payload.
	GetParentID(ctx context.Context, id string) (*string, error)

	// Rename updates an item's display name
	Rename(ctx context.Context, id, name string) error

	// SetParent re-parents an item and assigns its new sibling order
	SetParent(ctx context.Context, id string, parentID *string, order int) error

	// ListChildren lists immediate children ordered by sort key
	ListChildren(ctx context.Context, parentID *string) ([]models.Item, error)

	// CountChildren counts immediate children
	CountChildren(ctx context.Context, parentID *string) (int, error)

	// ListSubtree returns the item and all transitive descendants,
	// breadth-first from the root of the subtree.
	ListSubtree(ctx context.Context, rootID string) ([]models.Item, error)

	// DeleteByIDs removes the given items. Implementations may chunk the
	// statements but every chunk must run inside the ambient transaction.
	DeleteByIDs(ctx context.Context, ids []string) error

	// SetOrders rewrites the sort key of each listed item to its index in
	// the slice, as one statement. Unlisted siblings are unaffected.
	SetOrders(ctx context.Context, orderedIDs []string) error

	// GetMetadataForUpdate reads an item's metadata with a row lock so a
	// read-modify-write merge cannot clobber concurrent patches.
	GetMetadataForUpdate(ctx context.Context, id string) (*models.Metadata, error)

	// UpdateMetadata writes the merged metadata back
	UpdateMetadata(ctx context.Context, id string, meta *models.Metadata) error

	// ListStubs returns the id/parent projection of every item, the snapshot
	// published on the change feed.
	ListStubs(ctx context.Context) ([]models.ItemStub, error)
}
