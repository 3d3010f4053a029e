package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"campus/internal/config"
	"campus/internal/domain/models"
	"campus/internal/domain/services"
	"campus/internal/hierarchy"
	"campus/internal/repository/postgres"
	"campus/internal/service/content"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo content")
	adminUser := flag.String("admin-user", "", "User ID to grant the super-admin role")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	// Create repositories and the content service
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	itemRepo := postgres.NewItemRepository(repoConfig)
	grantRepo := postgres.NewGrantRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	feed := hierarchy.NewFeed()
	defer feed.Close()

	contentService := content.NewContentService(itemRepo, txManager, feed, noopNotifier{}, logger)

	// Grant super-admin if requested
	if *adminUser != "" {
		grant := &models.RoleGrant{
			UserID: *adminUser,
			Role:   models.RoleSuperAdmin,
		}
		if err := grantRepo.Create(ctx, grant); err != nil {
			log.Printf("⚠️  Could not create super-admin grant (may already exist): %v", err)
		} else {
			log.Printf("✅ Super-admin granted to %s", *adminUser)
		}
	}

	// Seed demo content tree
	log.Println("📝 Seeding demo content tree...")
	if err := seedDemoTree(ctx, contentService); err != nil {
		log.Fatalf("Failed to seed demo tree: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

// noopNotifier satisfies the content service without a Redis connection
type noopNotifier struct{}

func (noopNotifier) ChildrenChanged(ctx context.Context, parentID *string)             {}
func (noopNotifier) AccessDenied(ctx context.Context, operation string, itemID string) {}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	// Enable UUID extension
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	// Create items table
	createItems := `
		CREATE TABLE IF NOT EXISTS ` + tables.Items + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			parent_id UUID REFERENCES ` + tables.Items + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			item_type TEXT NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createItems); err != nil {
		return err
	}

	// Sibling listings read by (parent_id, sort_order)
	createItemsIndex := `
		CREATE INDEX IF NOT EXISTS ` + tables.Items + `_parent_order_idx
		ON ` + tables.Items + ` (parent_id, sort_order)
	`
	if _, err := pool.Exec(ctx, createItemsIndex); err != nil {
		return err
	}

	// Create role grants table
	createGrants := `
		CREATE TABLE IF NOT EXISTS ` + tables.Grants + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			role TEXT NOT NULL,
			scope_kind TEXT NOT NULL DEFAULT 'global',
			scope_id UUID REFERENCES ` + tables.Items + `(id) ON DELETE CASCADE,
			permissions TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE NULLS NOT DISTINCT (user_id, role, scope_kind, scope_id)
		)
	`
	if _, err := pool.Exec(ctx, createGrants); err != nil {
		return err
	}

	createGrantsIndex := `
		CREATE INDEX IF NOT EXISTS ` + tables.Grants + `_user_idx
		ON ` + tables.Grants + ` (user_id)
	`
	if _, err := pool.Exec(ctx, createGrantsIndex); err != nil {
		return err
	}

	return nil
}

// dropAllTables removes the campus tables (grants first, items FK)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Grants, tables.Items} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

// seedNode describes one item in the demo tree
type seedNode struct {
	name     string
	itemType models.ItemType
	children []seedNode
}

var demoTree = []seedNode{
	{
		name: "Year 10", itemType: models.ItemTypeLevel,
		children: []seedNode{
			{
				name: "Term 1", itemType: models.ItemTypeSemester,
				children: []seedNode{
					{
						name: "Mathematics", itemType: models.ItemTypeSubject,
						children: []seedNode{
							{name: "Algebra", itemType: models.ItemTypeFolder, children: []seedNode{
								{name: "Linear Equations", itemType: models.ItemTypeNote},
								{name: "Practice Quiz", itemType: models.ItemTypeQuiz},
							}},
							{name: "Syllabus", itemType: models.ItemTypeFile},
						},
					},
					{
						name: "Physics", itemType: models.ItemTypeSubject,
						children: []seedNode{
							{name: "Kinematics Flashcards", itemType: models.ItemTypeFlashcard},
						},
					},
				},
			},
		},
	},
	{
		name: "Year 11", itemType: models.ItemTypeLevel,
	},
}

func seedDemoTree(ctx context.Context, svc services.ContentService) error {
	var create func(parentID *string, nodes []seedNode) error
	create = func(parentID *string, nodes []seedNode) error {
		for _, node := range nodes {
			item, err := svc.CreateItem(ctx, &services.CreateItemRequest{
				ParentID: parentID,
				Name:     node.name,
				Type:     node.itemType,
			})
			if err != nil {
				return err
			}
			log.Printf("✅ Created %s: %s (ID: %s)", node.itemType, node.name, item.ID)

			if err := create(&item.ID, node.children); err != nil {
				return err
			}
		}
		return nil
	}
	return create(nil, demoTree)
}
