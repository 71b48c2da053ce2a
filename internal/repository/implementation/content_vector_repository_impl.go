package implementation

import (
	"context"
	"sort"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/scope"
	"ai-tutor-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ContentVectorRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContentVectorMapper
}

func NewContentVectorRepository(db *gorm.DB) contract.ContentVectorRepository {
	return &ContentVectorRepositoryImpl{
		db:     db,
		mapper: mapper.NewContentVectorMapper(),
	}
}

func (r *ContentVectorRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// collections groups the filter's content types by physical table. No types means
// the knowledge table only; memory vectors are only read when asked for.
func collections(types []entity.ContentType) map[string][]entity.ContentType {
	if len(types) == 0 {
		return map[string][]entity.ContentType{entity.CollectionContentVectors: nil}
	}
	out := map[string][]entity.ContentType{}
	for _, t := range types {
		c := t.Collection()
		out[c] = append(out[c], t)
	}
	return out
}

func (r *ContentVectorRepositoryImpl) Create(ctx context.Context, vector *entity.ContentVector) error {
	m := r.mapper.ToModel(vector)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if err := r.db.WithContext(ctx).Table(vector.ContentType.Collection()).Create(m).Error; err != nil {
		return err
	}
	*vector = *r.mapper.ToEntity(m)
	return nil
}

func (r *ContentVectorRepositoryImpl) SearchSimilar(ctx context.Context, userID string, embedding []float32, filter entity.VectorFilter) ([]*entity.ScoredContentVector, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.ContentVector
		Similarity float64
	}

	// Cosine distance in pgvector is 1 - cosine_similarity
	queryVector := pgvector.NewVector(embedding)
	var scored []*entity.ScoredContentVector

	for table, types := range collections(filter.ContentTypes) {
		f := filter
		f.ContentTypes = types

		var results []result
		query := r.db.WithContext(ctx).
			Table(table).
			Select(table+".*, 1 - (embedding <=> ?) AS similarity", queryVector)
		query = r.applySpecifications(query, specification.VectorFilterSpecs(userID, f)...)
		err := query.
			Order(gorm.Expr("embedding <=> ?", queryVector)).
			Limit(limit).
			Scan(&results).Error
		if err != nil {
			return nil, err
		}

		for i := range results {
			scored = append(scored, &entity.ScoredContentVector{
				Vector:     r.mapper.ToEntity(&results[i].ContentVector),
				Similarity: results[i].Similarity,
			})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *ContentVectorRepositoryImpl) FindAll(ctx context.Context, userID string, filter entity.VectorFilter) ([]*entity.ContentVector, error) {
	var out []*entity.ContentVector
	for table, types := range collections(filter.ContentTypes) {
		f := filter
		f.ContentTypes = types

		var models []*model.ContentVector
		query := r.applySpecifications(r.db.WithContext(ctx).Table(table), specification.VectorFilterSpecs(userID, f)...)
		query = query.Scopes(scope.OrderByCreatedAsc)
		if filter.Limit > 0 {
			query = specification.Pagination{Limit: filter.Limit}.Apply(query)
		}
		if err := query.Find(&models).Error; err != nil {
			return nil, err
		}
		out = append(out, r.mapper.ToEntities(models)...)
	}
	return out, nil
}

func (r *ContentVectorRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	// The id is unique across both tables
	for _, table := range []string{entity.CollectionContentVectors, entity.CollectionMemoryVectors} {
		if err := r.db.WithContext(ctx).Table(table).Where("id = ?", id).Delete(&model.ContentVector{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *ContentVectorRepositoryImpl) DeleteByContentId(ctx context.Context, userID string, contentType entity.ContentType, contentID string) error {
	query := r.db.WithContext(ctx).Table(contentType.Collection())
	query = r.applySpecifications(query,
		specification.ByUserID{UserID: userID},
		specification.ByContentTypes{Types: []entity.ContentType{contentType}},
		specification.ByContentIDs{IDs: []string{contentID}},
	)
	return query.Delete(&model.ContentVector{}).Error
}
