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

// PostgresGrantRepository implements the GrantRepository interface
type PostgresGrantRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewGrantRepository creates a new grant repository
func NewGrantRepository(config *RepositoryConfig) repositories.GrantRepository {
	return &PostgresGrantRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const grantColumns = "id, user_id, role, scope_kind, scope_id, permissions, created_at"

// Create inserts a new grant
func (r *PostgresGrantRepository) Create(ctx context.Context, grant *models.RoleGrant) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, role, scope_kind, scope_id, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`, r.tables.Grants)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		grant.UserID,
		grant.Role,
		grant.ScopeKind,
		grant.ScopeID,
		grant.Permissions,
	).Scan(&grant.ID, &grant.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("grant for user %s already exists at this scope", grant.UserID),
				ResourceType: "grant",
			}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("grant scope %v: %w", grant.ScopeID, domain.ErrNotFound)
		}
		return fmt.Errorf("create grant: %w", err)
	}

	return nil
}

// Delete removes a grant by ID
func (r *PostgresGrantRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Grants)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("grant %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByUser returns all grants held by a user
func (r *PostgresGrantRepository) ListByUser(ctx context.Context, userID string) ([]models.RoleGrant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, grantColumns, r.tables.Grants)

	return r.queryGrants(ctx, query, userID)
}

// List returns every grant
func (r *PostgresGrantRepository) List(ctx context.Context) ([]models.RoleGrant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY created_at ASC
	`, grantColumns, r.tables.Grants)

	return r.queryGrants(ctx, query)
}

func (r *PostgresGrantRepository) queryGrants(ctx context.Context, query string, args ...interface{}) ([]models.RoleGrant, error) {
	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var grants []models.RoleGrant
	for rows.Next() {
		var grant models.RoleGrant
		err := rows.Scan(
			&grant.ID,
			&grant.UserID,
			&grant.Role,
			&grant.ScopeKind,
			&grant.ScopeID,
			&grant.Permissions,
			&grant.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	// Return empty slice instead of nil
	if grants == nil {
		grants = []models.RoleGrant{}
	}

	return grants, nil
}
