package implementation

import (
	"context"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/scope"
	"ai-tutor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatTranscriptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatTranscriptMapper
}

func NewChatTranscriptRepository(db *gorm.DB) contract.ChatTranscriptRepository {
	return &ChatTranscriptRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatTranscriptMapper(),
	}
}

// Create ignores a duplicate run id so redelivered messages are harmless.
func (r *ChatTranscriptRepositoryImpl) Create(ctx context.Context, transcript *entity.ChatTranscript) error {
	m := r.mapper.ToModel(transcript)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "run_id"}}, DoNothing: true}).
		Create(m).Error
	if err != nil {
		return err
	}
	*transcript = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChatTranscriptRepositoryImpl) FindRecent(ctx context.Context, userID string, limit int) ([]*entity.ChatTranscript, error) {
	var models []*model.ChatTranscript
	query := specification.ByUserID{UserID: userID}.Apply(r.db.WithContext(ctx))
	query = specification.Pagination{Limit: limit}.Apply(query.Scopes(scope.OrderByCreatedDesc))
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.ChatTranscript, len(models))
	for i, m := range models {
		out[i] = r.mapper.ToEntity(m)
	}
	return out, nil
}
