package repos

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database with the schema the repos
// expect. Postgres-only column defaults (uuid_generate_v4) are left out;
// tests assign ids explicitly.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE communications (
			id text PRIMARY KEY,
			type text NOT NULL,
			sender_role text NOT NULL,
			sender_id text,
			recipient_role text NOT NULL,
			recipient_id text NOT NULL,
			subject text NOT NULL,
			content text NOT NULL,
			priority text NOT NULL DEFAULT 'medium',
			status text NOT NULL DEFAULT 'pending',
			plan_id text,
			metadata text,
			created_at datetime,
			updated_at datetime,
			deleted_at datetime
		)`,
		`CREATE TABLE piar_records (
			id text PRIMARY KEY,
			student_id text NOT NULL UNIQUE,
			student_name text NOT NULL,
			grade text,
			diagnostic_summary text,
			objectives text,
			adaptations text,
			resources text,
			evaluation_criteria text,
			created_at datetime,
			updated_at datetime,
			deleted_at datetime
		)`,
		`CREATE TABLE generation_runs (
			id text PRIMARY KEY,
			user_id text,
			capability text NOT NULL,
			role text,
			provider text,
			fallback boolean,
			success boolean,
			error text,
			latency_ms integer,
			student_ids text,
			created_at datetime,
			updated_at datetime
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}
