package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Tables returns every model owned by AutoMigrate. Vector tables are handled by
// MigrateVectorTables since both share one model.
func Tables() []interface{} {
	return []interface{}{
		&User{},
		&KnowledgeItem{},
		&GraphEdge{},
		&ChatTranscript{},
	}
}

var VectorTables = []string{"content_vectors", "memory_vectors"}

// MigrateVectorTables creates both vector tables, pins the embedding column to
// vector(dimension) and builds the ivfflat cosine index.
func MigrateVectorTables(db *gorm.DB, dimension, lists int) error {
	for _, table := range VectorTables {
		if err := db.Table(table).AutoMigrate(&ContentVector{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}

		stmts := []string{
			fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN embedding TYPE vector(%d)`, table, dimension),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)`, table, table, lists),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_type ON %s (user_id, content_type)`, table, table),
		}
		for _, stmt := range stmts {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("migrate %s: %w", table, err)
			}
		}
	}
	return nil
}
