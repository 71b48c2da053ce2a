package main

import (
	"log"

	"ai-tutor-be/internal/config"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Error: invalid configuration: %v", err)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute setup SQL: %v", err)
		}
	}

	log.Println("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(model.Tables()...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Printf("Step 3: Creating vector tables (dimension=%d, lists=%d)...", cfg.Vector.Dimension, cfg.Vector.Lists)
	if err := model.MigrateVectorTables(db, cfg.Vector.Dimension, cfg.Vector.Lists); err != nil {
		log.Fatalf("Error: %v", err)
	}

	log.Println("Step 4: Creating graph indexes...")
	postMigrationSQL := []string{
		`CREATE INDEX IF NOT EXISTS idx_knowledge_graph_edge ON knowledge_graph (user_id, source_id, target_id);`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_items_hash ON knowledge_items (user_id, content_hash) WHERE deleted_at IS NULL;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: database migration completed.")
}
