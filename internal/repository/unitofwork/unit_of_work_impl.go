package unitofwork

import (
	"context"
	"fmt"

	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // active transaction, nil outside Begin/Commit
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) UserRepository() contract.UserRepository {
	return implementation.NewUserRepository(u.getDB())
}

func (u *UnitOfWorkImpl) KnowledgeItemRepository() contract.KnowledgeItemRepository {
	return implementation.NewKnowledgeItemRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ContentVectorRepository() contract.ContentVectorRepository {
	return implementation.NewContentVectorRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GraphEdgeRepository() contract.GraphEdgeRepository {
	return implementation.NewGraphEdgeRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ChatTranscriptRepository() contract.ChatTranscriptRepository {
	return implementation.NewChatTranscriptRepository(u.getDB())
}
