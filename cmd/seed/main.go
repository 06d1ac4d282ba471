package main

import (
	"context"
	"flag"
	"log"
	"time"

	"redraft/internal/config"
	"redraft/internal/repository/postgres"
	"redraft/internal/service/auth"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before setup (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed a demo account")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

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

	// Seed a demo account for local development
	if err := ensureDemoUser(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}
	log.Println("🎉 Seeding complete! Login with demo@example.com / demo-password")
}

// runSchema creates tables if they don't exist. gen_random_uuid()
// needs Postgres 13+.
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	// Create users table
	createUsers := `
		CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUsers); err != nil {
		return err
	}

	// Create works table
	createWorks := `
		CREATE TABLE IF NOT EXISTS ` + tables.Works + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_email TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT 'Untitled',
			content TEXT NOT NULL DEFAULT '',
			essay_prompt TEXT,
			rubric TEXT,
			current_version INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createWorks); err != nil {
		return err
	}

	indexWorksByUser := `
		CREATE INDEX IF NOT EXISTS idx_` + tables.Works + `_user_email
		ON ` + tables.Works + ` (user_email, updated_at DESC)
	`
	if _, err := pool.Exec(ctx, indexWorksByUser); err != nil {
		return err
	}

	// Create work versions table (immutable ledger)
	createVersions := `
		CREATE TABLE IF NOT EXISTS ` + tables.WorkVersions + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			work_id UUID NOT NULL REFERENCES ` + tables.Works + `(id) ON DELETE CASCADE,
			user_email TEXT NOT NULL,
			version_number INTEGER NOT NULL,
			content TEXT NOT NULL,
			is_submitted BOOLEAN NOT NULL DEFAULT FALSE,
			parent_submission_version INTEGER,
			user_reflection TEXT,
			change_type TEXT NOT NULL DEFAULT 'draft_edit',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(work_id, version_number)
		)
	`
	if _, err := pool.Exec(ctx, createVersions); err != nil {
		return err
	}

	// Create text analyses table
	createAnalyses := `
		CREATE TABLE IF NOT EXISTS ` + tables.TextAnalyses + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			work_id UUID NOT NULL REFERENCES ` + tables.Works + `(id) ON DELETE CASCADE,
			user_email TEXT NOT NULL,
			version_number INTEGER NOT NULL,
			text_snapshot TEXT NOT NULL,
			fao_comment TEXT NOT NULL,
			sentence_comments JSONB NOT NULL DEFAULT '[]',
			reflection_comment TEXT,
			rubric_evaluation JSONB,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(work_id, version_number)
		)
	`
	if _, err := pool.Exec(ctx, createAnalyses); err != nil {
		return err
	}

	// Create suggestion resolutions table
	createResolutions := `
		CREATE TABLE IF NOT EXISTS ` + tables.SuggestionResolutions + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			work_id UUID NOT NULL REFERENCES ` + tables.Works + `(id) ON DELETE CASCADE,
			analysis_id UUID NOT NULL REFERENCES ` + tables.TextAnalyses + `(id) ON DELETE CASCADE,
			suggestion_id TEXT NOT NULL,
			from_version INTEGER NOT NULL,
			to_version INTEGER NOT NULL,
			user_action TEXT NOT NULL,
			user_note TEXT,
			resolution_status TEXT,
			llm_feedback TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createResolutions); err != nil {
		return err
	}

	// Create work comments table
	createComments := `
		CREATE TABLE IF NOT EXISTS ` + tables.WorkComments + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			work_id UUID NOT NULL REFERENCES ` + tables.Works + `(id) ON DELETE CASCADE,
			user_email TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createComments); err != nil {
		return err
	}

	return nil
}

// dropAllTables drops tables in dependency order
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	drops := []string{
		tables.SuggestionResolutions,
		tables.WorkComments,
		tables.TextAnalyses,
		tables.WorkVersions,
		tables.Works,
		tables.Users,
	}
	for _, table := range drops {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

// ensureDemoUser creates the local demo account if it doesn't exist
func ensureDemoUser(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	hash, err := auth.HashPassword("demo-password")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ` + tables.Users + ` (email, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`
	_, err = pool.Exec(ctx, query, "demo@example.com", "demo", hash, time.Now())
	return err
}
