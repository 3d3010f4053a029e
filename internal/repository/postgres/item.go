package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"campus/internal/domain"
	"campus/internal/domain/models"
	"campus/internal/domain/repositories"
)

// deleteChunkSize bounds the parameter count of a single DELETE statement.
// All chunks of one logical delete run inside the same transaction, so the
// operation stays all-or-nothing regardless of subtree size.
const deleteChunkSize = 500

// PostgresItemRepository implements the ItemRepository interface
type PostgresItemRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewItemRepository creates a new item repository
func NewItemRepository(config *RepositoryConfig) repositories.ItemRepository {
	return &PostgresItemRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const itemColumns = "id, parent_id, name, item_type, sort_order, metadata, created_at, updated_at"

func scanItem(row interface{ Scan(...any) error }, item *models.Item) error {
	return row.Scan(
		&item.ID,
		&item.ParentID,
		&item.Name,
		&item.Type,
		&item.Order,
		&item.Metadata,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

// wrapWriteError translates engine-level failures on write paths into the
// domain taxonomy. Storage-layer permission rejections must stay
// distinguishable from structural errors.
func wrapWriteError(op string, err error) error {
	switch {
	case IsPgPermissionError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrAccessDenied)
	case IsPgSerializationError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	case IsPgForeignKeyError(err):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Create inserts a new item
func (r *PostgresItemRepository) Create(ctx context.Context, item *models.Item) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (parent_id, name, item_type, sort_order, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		item.ParentID,
		item.Name,
		item.Type,
		item.Order,
		item.Metadata,
		item.CreatedAt,
		item.UpdatedAt,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		return wrapWriteError("create item", err)
	}

	return nil
}

// CreateBatch inserts a set of pre-built items with assigned IDs. Used by
// copy, which wires duplicated children to duplicated parents before any
// row exists.
func (r *PostgresItemRepository) CreateBatch(ctx context.Context, items []*models.Item) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, parent_id, name, item_type, sort_order, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	for _, item := range items {
		_, err := executor.Exec(ctx, query,
			item.ID,
			item.ParentID,
			item.Name,
			item.Type,
			item.Order,
			item.Metadata,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			return wrapWriteError("create item batch", err)
		}
	}

	return nil
}

// GetByID retrieves an item by ID
func (r *PostgresItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, itemColumns, r.tables.Items)

	var item models.Item
	executor := GetExecutor(ctx, r.pool)
	err := scanItem(executor.QueryRow(ctx, query, id), &item)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	return &item, nil
}

// GetParentID returns just the parent reference of an item
func (r *PostgresItemRepository) GetParentID(ctx context.Context, id string) (*string, error) {
	query := fmt.Sprintf(`
		SELECT parent_id
		FROM %s
		WHERE id = $1
	`, r.tables.Items)

	var parentID *string
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&parentID)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get item parent: %w", err)
	}

	return parentID, nil
}

// Rename updates an item's display name
func (r *PostgresItemRepository) Rename(ctx context.Context, id, name string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, updated_at = NOW()
		WHERE id = $2
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, name, id)
	if err != nil {
		return wrapWriteError("rename item", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetParent re-parents an item and assigns its new sibling order
func (r *PostgresItemRepository) SetParent(ctx context.Context, id string, parentID *string, order int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, sort_order = $2, updated_at = NOW()
		WHERE id = $3
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, parentID, order, id)
	if err != nil {
		return wrapWriteError("move item", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate children ordered by sort key
func (r *PostgresItemRepository) ListChildren(ctx context.Context, parentID *string) ([]models.Item, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE parent_id IS NULL
			ORDER BY sort_order ASC, created_at ASC
		`, itemColumns, r.tables.Items)
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE parent_id = $1
			ORDER BY sort_order ASC, created_at ASC
		`, itemColumns, r.tables.Items)
		args = append(args, *parentID)
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	// Return empty slice instead of nil
	if items == nil {
		items = []models.Item{}
	}

	return items, nil
}

// CountChildren counts immediate children
func (r *PostgresItemRepository) CountChildren(ctx context.Context, parentID *string) (int, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE parent_id IS NULL`, r.tables.Items)
	} else {
		query = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE parent_id = $1`, r.tables.Items)
		args = append(args, *parentID)
	}

	var count int
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}

	return count, nil
}

// ListSubtree returns an item and all transitive descendants, breadth-first
// from the subtree root, using a recursive CTE.
func (r *PostgresItemRepository) ListSubtree(ctx context.Context, rootID string) ([]models.Item, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT %s, 0 AS depth
			FROM %s
			WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id, c.name, c.item_type, c.sort_order, c.metadata, c.created_at, c.updated_at, s.depth + 1
			FROM %s c
			JOIN subtree s ON c.parent_id = s.id
		)
		SELECT %s FROM subtree
		ORDER BY depth ASC, sort_order ASC
	`, itemColumns, r.tables.Items, r.tables.Items, itemColumns)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, rootID)
	if err != nil {
		return nil, fmt.Errorf("list subtree: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var item models.Item
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtree: %w", err)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("item %s: %w", rootID, domain.ErrNotFound)
	}

	return items, nil
}

// DeleteByIDs removes the given items in bounded chunks. Chunks only bound
// statement size; callers run this inside a transaction for atomicity.
func (r *PostgresItemRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = ANY($1)
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		if _, err := executor.Exec(ctx, query, ids[start:end]); err != nil {
			return wrapWriteError("delete items", err)
		}
	}

	return nil
}

// SetOrders rewrites the sort key of each listed item to its index in the
// slice as a single statement.
func (r *PostgresItemRepository) SetOrders(ctx context.Context, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s AS i
		SET sort_order = x.ord - 1, updated_at = NOW()
		FROM unnest($1::uuid[]) WITH ORDINALITY AS x(id, ord)
		WHERE i.id = x.id
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, orderedIDs); err != nil {
		return wrapWriteError("set orders", err)
	}

	return nil
}

// GetMetadataForUpdate reads an item's metadata under a row lock so the
// caller's merge cannot clobber a concurrent patch of unrelated keys.
func (r *PostgresItemRepository) GetMetadataForUpdate(ctx context.Context, id string) (*models.Metadata, error) {
	query := fmt.Sprintf(`
		SELECT metadata
		FROM %s
		WHERE id = $1
		FOR UPDATE
	`, r.tables.Items)

	var meta models.Metadata
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&meta)

	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}

	return &meta, nil
}

// UpdateMetadata writes merged metadata back
func (r *PostgresItemRepository) UpdateMetadata(ctx context.Context, id string, meta *models.Metadata) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET metadata = $1, updated_at = NOW()
		WHERE id = $2
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, meta, id)
	if err != nil {
		return wrapWriteError("update metadata", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListStubs returns the id/parent projection of every item
func (r *PostgresItemRepository) ListStubs(ctx context.Context) ([]models.ItemStub, error) {
	query := fmt.Sprintf(`
		SELECT id, parent_id
		FROM %s
	`, r.tables.Items)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stubs: %w", err)
	}
	defer rows.Close()

	var stubs []models.ItemStub
	for rows.Next() {
		var stub models.ItemStub
		if err := rows.Scan(&stub.ID, &stub.ParentID); err != nil {
			return nil, fmt.Errorf("scan stub: %w", err)
		}
		stubs = append(stubs, stub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stubs: %w", err)
	}

	if stubs == nil {
		stubs = []models.ItemStub{}
	}

	return stubs, nil
}
