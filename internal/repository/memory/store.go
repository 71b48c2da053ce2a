package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Store is a process-local backend with the same contracts as the gorm
// repositories. It backs tests and the database-less development mode.
type Store struct {
	mu          sync.RWMutex
	vectors     map[string][]*entity.ContentVector // by collection
	edges       []*entity.GraphEdge
	items       map[uuid.UUID]*entity.KnowledgeItem
	users       map[string]*entity.UserProfile
	transcripts []*entity.ChatTranscript
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		vectors: map[string][]*entity.ContentVector{},
		items:   map[uuid.UUID]*entity.KnowledgeItem{},
		users:   map[string]*entity.UserProfile{},
		now:     time.Now,
	}
}

// PutUser seeds a profile.
func (s *Store) PutUser(profile *entity.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.users[profile.UserId] = &cp
}

func (s *Store) ContentVectors() contract.ContentVectorRepository { return &contentVectorRepo{s} }
func (s *Store) GraphEdges() contract.GraphEdgeRepository         { return &graphEdgeRepo{s} }
func (s *Store) KnowledgeItems() contract.KnowledgeItemRepository { return &knowledgeItemRepo{s} }
func (s *Store) Users() contract.UserRepository                   { return &userRepo{s} }
func (s *Store) ChatTranscripts() contract.ChatTranscriptRepository {
	return &chatTranscriptRepo{s}
}

func copyVector(v *entity.ContentVector) *entity.ContentVector {
	cp := *v
	cp.Embedding = append([]float32(nil), v.Embedding...)
	cp.Metadata = copyMap(v.Metadata)
	return &cp
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func collectionsFor(types []entity.ContentType) []string {
	if len(types) == 0 {
		return []string{entity.CollectionContentVectors}
	}
	seen := map[string]bool{}
	var out []string
	for _, t := range types {
		c := t.Collection()
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

type contentVectorRepo struct{ s *Store }

func (r *contentVectorRepo) Create(ctx context.Context, vector *entity.ContentVector) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if vector.Id == uuid.Nil {
		vector.Id = uuid.New()
	}
	if vector.CreatedAt.IsZero() {
		vector.CreatedAt = r.s.now()
	}
	c := vector.ContentType.Collection()
	r.s.vectors[c] = append(r.s.vectors[c], copyVector(vector))
	return nil
}

func (r *contentVectorRepo) SearchSimilar(ctx context.Context, userID string, embedding []float32, filter entity.VectorFilter) ([]*entity.ScoredContentVector, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 5
	}
	var scored []*entity.ScoredContentVector
	for _, c := range collectionsFor(filter.ContentTypes) {
		for _, v := range r.s.vectors[c] {
			if v.UserId != userID || !filter.Matches(v) {
				continue
			}
			scored = append(scored, &entity.ScoredContentVector{
				Vector:     copyVector(v),
				Similarity: cosine(embedding, v.Embedding),
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

func (r *contentVectorRepo) FindAll(ctx context.Context, userID string, filter entity.VectorFilter) ([]*entity.ContentVector, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*entity.ContentVector
	for _, c := range collectionsFor(filter.ContentTypes) {
		for _, v := range r.s.vectors[c] {
			if v.UserId == userID && filter.Matches(v) {
				out = append(out, copyVector(v))
			}
			if filter.Limit > 0 && len(out) == filter.Limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (r *contentVectorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for c, list := range r.s.vectors {
		r.s.vectors[c] = removeVectors(list, func(v *entity.ContentVector) bool { return v.Id == id })
	}
	return nil
}

func (r *contentVectorRepo) DeleteByContentId(ctx context.Context, userID string, contentType entity.ContentType, contentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := contentType.Collection()
	r.s.vectors[c] = removeVectors(r.s.vectors[c], func(v *entity.ContentVector) bool {
		return v.UserId == userID && v.ContentType == contentType && v.ContentId == contentID
	})
	return nil
}

func removeVectors(list []*entity.ContentVector, drop func(*entity.ContentVector) bool) []*entity.ContentVector {
	kept := list[:0]
	for _, v := range list {
		if !drop(v) {
			kept = append(kept, v)
		}
	}
	return kept
}

type graphEdgeRepo struct{ s *Store }

func (r *graphEdgeRepo) Create(ctx context.Context, edge *entity.GraphEdge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if edge.Id == uuid.Nil {
		edge.Id = uuid.New()
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = r.s.now()
	}
	cp := *edge
	cp.Metadata = copyMap(edge.Metadata)
	r.s.edges = append(r.s.edges, &cp)
	return nil
}

func (r *graphEdgeRepo) FindAll(ctx context.Context, userID string, filter entity.EdgeFilter) ([]*entity.GraphEdge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.GraphEdge
	for _, e := range r.s.edges {
		if e.UserId == userID && filter.Matches(e) {
			cp := *e
			cp.Metadata = copyMap(e.Metadata)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *graphEdgeRepo) DeleteTouching(ctx context.Context, userID, contentID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.edges[:0]
	for _, e := range r.s.edges {
		if e.UserId == userID && (e.SourceContentId == contentID || e.TargetContentId == contentID) {
			continue
		}
		kept = append(kept, e)
	}
	r.s.edges = kept
	return nil
}

type knowledgeItemRepo struct{ s *Store }

func (r *knowledgeItemRepo) Create(ctx context.Context, item *entity.KnowledgeItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if item.Id == uuid.Nil {
		item.Id = uuid.New()
	}
	now := r.s.now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	cp := *item
	cp.Metadata = copyMap(item.Metadata)
	r.s.items[item.Id] = &cp
	return nil
}

func (r *knowledgeItemRepo) Update(ctx context.Context, item *entity.KnowledgeItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item.UpdatedAt = r.s.now()
	cp := *item
	cp.Metadata = copyMap(item.Metadata)
	r.s.items[item.Id] = &cp
	return nil
}

func (r *knowledgeItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.items, id)
	return nil
}

func (r *knowledgeItemRepo) FindByID(ctx context.Context, userID string, id uuid.UUID) (*entity.KnowledgeItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.items[id]
	if !ok || item.UserId != userID {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (r *knowledgeItemRepo) FindLatestByHash(ctx context.Context, userID string, contentType entity.ContentType, hash string) (*entity.KnowledgeItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *entity.KnowledgeItem
	for _, item := range r.s.items {
		if item.UserId != userID || item.ContentType != contentType || item.ContentHash != hash {
			continue
		}
		if latest == nil || item.Version > latest.Version {
			latest = item
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

type userRepo struct{ s *Store }

func (r *userRepo) FindProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, userID string, update entity.ProfileUpdate) (*entity.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.users[userID]
	if !ok {
		return nil, nil
	}
	update.Apply(p)
	cp := *p
	return &cp, nil
}

type chatTranscriptRepo struct{ s *Store }

func (r *chatTranscriptRepo) Create(ctx context.Context, transcript *entity.ChatTranscript) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transcripts {
		if transcript.RunId != "" && t.RunId == transcript.RunId {
			return nil
		}
	}
	if transcript.Id == uuid.Nil {
		transcript.Id = uuid.New()
	}
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = r.s.now()
	}
	cp := *transcript
	r.s.transcripts = append(r.s.transcripts, &cp)
	return nil
}

func (r *chatTranscriptRepo) FindRecent(ctx context.Context, userID string, limit int) ([]*entity.ChatTranscript, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*entity.ChatTranscript
	for i := len(r.s.transcripts) - 1; i >= 0; i-- {
		t := r.s.transcripts[i]
		if t.UserId != userID {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// unitOfWork has no rollback: writes are applied immediately.
type unitOfWork struct{ s *Store }

func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) UserRepository() contract.UserRepository { return u.s.Users() }
func (u *unitOfWork) KnowledgeItemRepository() contract.KnowledgeItemRepository {
	return u.s.KnowledgeItems()
}
func (u *unitOfWork) ContentVectorRepository() contract.ContentVectorRepository {
	return u.s.ContentVectors()
}
func (u *unitOfWork) GraphEdgeRepository() contract.GraphEdgeRepository { return u.s.GraphEdges() }
func (u *unitOfWork) ChatTranscriptRepository() contract.ChatTranscriptRepository {
	return u.s.ChatTranscripts()
}

type repositoryFactory struct{ s *Store }

func NewRepositoryFactory(s *Store) unitofwork.RepositoryFactory {
	return &repositoryFactory{s: s}
}

func (f *repositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{s: f.s}
}
