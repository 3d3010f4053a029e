package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"campus/internal/config"
	"campus/internal/domain"
	"campus/internal/domain/models"
	"campus/internal/domain/repositories"
	"campus/internal/domain/services"
)

const (
	// maxConflictRetries bounds automatic retry of serialization failures
	// before ErrConflict surfaces to the caller.
	maxConflictRetries = 3

	conflictBackoff = 25 * time.Millisecond
)

// contentService implements the ContentService interface
type contentService struct {
	itemRepo  repositories.ItemRepository
	txManager repositories.TransactionManager
	publisher services.SnapshotPublisher
	notifier  services.Notifier
	logger    *slog.Logger
}

// NewContentService creates a new content service
func NewContentService(
	itemRepo repositories.ItemRepository,
	txManager repositories.TransactionManager,
	publisher services.SnapshotPublisher,
	notifier services.Notifier,
	logger *slog.Logger,
) services.ContentService {
	return &contentService{
		itemRepo:  itemRepo,
		txManager: txManager,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
	}
}

// execUnit runs fn as one unit of work with bounded retry on commit
// conflicts. Structural errors pass through untouched; an AccessDenied from
// the engine is additionally reported on the side channel before being
// returned (dual reporting is intentional).
func (s *contentService) execUnit(ctx context.Context, operation, itemID string, fn repositories.TxFn) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(conflictBackoff << (attempt - 1)):
			}
		}

		err = s.txManager.ExecTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			break
		}

		s.logger.Warn("unit of work conflicted, retrying",
			"operation", operation,
			"item_id", itemID,
			"attempt", attempt+1,
		)
	}

	if errors.Is(err, domain.ErrAccessDenied) {
		s.notifier.AccessDenied(ctx, operation, itemID)
	}

	return err
}

// publishChanges pushes a fresh snapshot to the hierarchy feed and notifies
// UI lists whose parent's children changed. Runs after commit; failures are
// logged, never surfaced.
func (s *contentService) publishChanges(ctx context.Context, parents ...*string) {
	stubs, err := s.itemRepo.ListStubs(ctx)
	if err != nil {
		s.logger.Error("failed to snapshot items for change feed", "error", err)
	} else {
		s.publisher.Publish(stubs)
	}

	seen := make(map[string]bool, len(parents))
	for _, parent := range parents {
		key := ""
		if parent != nil {
			key = *parent
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		s.notifier.ChildrenChanged(ctx, parent)
	}
}

// CreateItem creates an item appended to the end of its siblings
func (s *contentService) CreateItem(ctx context.Context, req *services.CreateItemRequest) (*models.Item, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := time.Now()
	item := &models.Item{
		ParentID:  req.ParentID,
		Name:      req.Name,
		Type:      req.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Metadata != nil {
		item.Metadata = *req.Metadata
	}

	err := s.execUnit(ctx, "createItem", "", func(txCtx context.Context) error {
		if req.ParentID != nil {
			if _, err := s.itemRepo.GetByID(txCtx, *req.ParentID); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}

		// Append to end: order is the current sibling count
		count, err := s.itemRepo.CountChildren(txCtx, req.ParentID)
		if err != nil {
			return err
		}
		item.Order = count

		return s.itemRepo.Create(txCtx, item)
	})
	if err != nil {
		return nil, err
	}

	s.publishChanges(ctx, req.ParentID)

	s.logger.Info("item created",
		"id", item.ID,
		"name", item.Name,
		"type", item.Type,
		"parent_id", req.ParentID,
		"order", item.Order,
	)

	return item, nil
}

// Rename updates an item's display name
func (s *contentService) Rename(ctx context.Context, id, name string) (*models.Item, error) {
	if err := validation.Validate(name, validation.Required, validation.Length(1, config.MaxItemNameLength)); err != nil {
		return nil, fmt.Errorf("%w: name: %v", domain.ErrValidation, err)
	}

	var item *models.Item
	err := s.execUnit(ctx, "rename", id, func(txCtx context.Context) error {
		if err := s.itemRepo.Rename(txCtx, id, name); err != nil {
			return err
		}
		var err error
		item, err = s.itemRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishChanges(ctx, item.ParentID)

	s.logger.Info("item renamed", "id", id, "name", name)

	return item, nil
}

// Move re-parents an item to the end of the destination's children
func (s *contentService) Move(ctx context.Context, id string, newParentID *string) (*models.Item, error) {
	var item *models.Item
	var oldParent *string

	err := s.execUnit(ctx, "move", id, func(txCtx context.Context) error {
		current, err := s.itemRepo.GetParentID(txCtx, id)
		if err != nil {
			return err
		}
		oldParent = current

		if err := s.checkMoveTarget(txCtx, id, newParentID); err != nil {
			return err
		}

		// Append to end of the destination
		count, err := s.itemRepo.CountChildren(txCtx, newParentID)
		if err != nil {
			return err
		}

		if err := s.itemRepo.SetParent(txCtx, id, newParentID, count); err != nil {
			return err
		}

		item, err = s.itemRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishChanges(ctx, oldParent, newParentID)

	s.logger.Info("item moved", "id", id, "new_parent_id", newParentID)

	return item, nil
}

// checkMoveTarget rejects a move that would make an item its own ancestor.
// Walks parent links from the destination up to root; the walk is bounded by
// the visited set so corrupt data cannot loop it forever.
func (s *contentService) checkMoveTarget(ctx context.Context, id string, newParentID *string) error {
	if newParentID == nil {
		return nil
	}
	if *newParentID == id {
		return &domain.InvalidOperationError{
			Message: "cannot move an item into itself",
			ItemID:  id,
		}
	}

	visited := map[string]bool{}
	cursor := newParentID
	for cursor != nil {
		if *cursor == id {
			return &domain.InvalidOperationError{
				Message: "cannot move an item into its own subtree",
				ItemID:  id,
			}
		}
		if visited[*cursor] {
			return &domain.InvalidOperationError{
				Message: "ancestry of destination does not terminate",
				ItemID:  *cursor,
			}
		}
		visited[*cursor] = true

		parent, err := s.itemRepo.GetParentID(ctx, *cursor)
		if err != nil {
			return fmt.Errorf("destination: %w", err)
		}
		cursor = parent
	}

	return nil
}

// Copy duplicates an item and its subtree with fresh IDs. The whole ordering
// plan is computed before any write and the duplicated subtree commits in
// one unit of work, so concurrent inserts into the destination cannot
// interleave with it.
func (s *contentService) Copy(ctx context.Context, id string, newParentID *string) (*models.Item, error) {
	var root *models.Item

	err := s.execUnit(ctx, "copy", id, func(txCtx context.Context) error {
		if newParentID != nil {
			if _, err := s.itemRepo.GetByID(txCtx, *newParentID); err != nil {
				return fmt.Errorf("destination: %w", err)
			}
		}

		subtree, err := s.itemRepo.ListSubtree(txCtx, id)
		if err != nil {
			return err
		}

		baseOrder, err := s.itemRepo.CountChildren(txCtx, newParentID)
		if err != nil {
			return err
		}

		copies := planCopy(subtree, newParentID, baseOrder)
		if err := s.itemRepo.CreateBatch(txCtx, copies); err != nil {
			return err
		}

		root = copies[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishChanges(ctx, newParentID)

	s.logger.Info("item copied",
		"source_id", id,
		"copy_id", root.ID,
		"new_parent_id", newParentID,
	)

	return root, nil
}

// planCopy builds the duplicated subtree: fresh IDs everywhere, "(Copy)"
// suffix only on the root, derived upload handles cleared, every child
// re-parented under its copied ancestor. subtree arrives breadth-first with
// the source root at index 0.
func planCopy(subtree []models.Item, newParentID *string, baseOrder int) []*models.Item {
	idMap := make(map[string]string, len(subtree))
	for i := range subtree {
		idMap[subtree[i].ID] = uuid.New().String()
	}

	now := time.Now()
	copies := make([]*models.Item, 0, len(subtree))
	sourceRootID := subtree[0].ID

	for i := range subtree {
		src := subtree[i]
		dup := &models.Item{
			ID:        idMap[src.ID],
			Name:      src.Name,
			Type:      src.Type,
			Order:     src.Order,
			Metadata:  src.Metadata.CopyForDuplicate(),
			CreatedAt: now,
			UpdatedAt: now,
		}

		if src.ID == sourceRootID {
			dup.Name = src.Name + " (Copy)"
			dup.ParentID = newParentID
			dup.Order = baseOrder
		} else {
			mapped := idMap[*src.ParentID]
			dup.ParentID = &mapped
		}

		copies = append(copies, dup)
	}

	return copies
}

// Delete removes an item and every transitive descendant as one unit of work
func (s *contentService) Delete(ctx context.Context, id string) error {
	var parent *string
	var removed int

	err := s.execUnit(ctx, "delete", id, func(txCtx context.Context) error {
		subtree, err := s.itemRepo.ListSubtree(txCtx, id)
		if err != nil {
			return err
		}
		parent = subtree[0].ParentID

		ids := make([]string, len(subtree))
		for i := range subtree {
			ids[i] = subtree[i].ID
		}
		removed = len(ids)

		return s.itemRepo.DeleteByIDs(txCtx, ids)
	})
	if err != nil {
		return err
	}

	s.publishChanges(ctx, parent)

	s.logger.Info("item deleted", "id", id, "removed", removed)

	return nil
}

// SetOrder rewrites the sort key of each listed child to its index
func (s *contentService) SetOrder(ctx context.Context, parentID *string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return fmt.Errorf("%w: ordered ids must not be empty", domain.ErrValidation)
	}

	err := s.execUnit(ctx, "setOrder", "", func(txCtx context.Context) error {
		return s.itemRepo.SetOrders(txCtx, orderedIDs)
	})
	if err != nil {
		return err
	}

	s.publishChanges(ctx, parentID)

	s.logger.Info("siblings reordered", "parent_id", parentID, "count", len(orderedIDs))

	return nil
}

// ToggleHidden flips the visibility flag under read-your-writes
func (s *contentService) ToggleHidden(ctx context.Context, id string) (bool, error) {
	var hidden bool

	err := s.execUnit(ctx, "toggleHidden", id, func(txCtx context.Context) error {
		meta, err := s.itemRepo.GetMetadataForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		meta.IsHidden = !meta.IsHidden
		hidden = meta.IsHidden

		return s.itemRepo.UpdateMetadata(txCtx, id, meta)
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("item visibility toggled", "id", id, "is_hidden", hidden)

	return hidden, nil
}

// PatchMetadata merges a partial metadata update under read-your-writes so
// concurrent patches of unrelated keys are preserved.
func (s *contentService) PatchMetadata(ctx context.Context, id string, patch *models.MetadataPatch) (*models.Item, error) {
	if patch == nil {
		return nil, fmt.Errorf("%w: patch must not be empty", domain.ErrValidation)
	}

	var item *models.Item
	err := s.execUnit(ctx, "patchMetadata", id, func(txCtx context.Context) error {
		meta, err := s.itemRepo.GetMetadataForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		patch.Apply(meta)

		if err := s.itemRepo.UpdateMetadata(txCtx, id, meta); err != nil {
			return err
		}

		item, err = s.itemRepo.GetByID(txCtx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item metadata patched", "id", id)

	return item, nil
}

// GetChildren lists immediate children ordered by sort key
func (s *contentService) GetChildren(ctx context.Context, parentID *string) ([]models.Item, error) {
	return s.itemRepo.ListChildren(ctx, parentID)
}

// GetByID retrieves a single item
func (s *contentService) GetByID(ctx context.Context, id string) (*models.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// validateCreateRequest checks the shape of a creation request
func validateCreateRequest(req *services.CreateItemRequest) error {
	if err := validation.Validate(req.Name, validation.Required, validation.Length(1, config.MaxItemNameLength)); err != nil {
		return fmt.Errorf("name: %v", err)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("unknown item type %q", req.Type)
	}
	if req.Metadata != nil && req.Metadata.Link != nil {
		if err := validation.Validate(req.Metadata.Link.URL,
			validation.Required,
			validation.Length(1, config.MaxLinkURLLength),
		); err != nil {
			return fmt.Errorf("link url: %v", err)
		}
	}
	return nil
}
