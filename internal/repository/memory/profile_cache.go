package memory

import (
	"context"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// CachedUserRepository keeps profiles in go-cache; a chat turn reads the profile
// once per request and profiles rarely change.
type CachedUserRepository struct {
	next  contract.UserRepository
	cache *cache.Cache
}

func NewCachedUserRepository(next contract.UserRepository, ttl time.Duration) *CachedUserRepository {
	return &CachedUserRepository{
		next:  next,
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *CachedUserRepository) FindProfile(ctx context.Context, userID string) (*entity.UserProfile, error) {
	if x, found := r.cache.Get(userID); found {
		p := *x.(*entity.UserProfile)
		return &p, nil
	}
	p, err := r.next.FindProfile(ctx, userID)
	if err != nil || p == nil {
		return p, err
	}
	cp := *p
	r.cache.Set(userID, &cp, cache.DefaultExpiration)
	return p, nil
}

// UpdateProfile writes through and drops the cached copy.
func (r *CachedUserRepository) UpdateProfile(ctx context.Context, userID string, update entity.ProfileUpdate) (*entity.UserProfile, error) {
	p, err := r.next.UpdateProfile(ctx, userID, update)
	r.cache.Delete(userID)
	return p, err
}

func (r *CachedUserRepository) Invalidate(userID string) {
	r.cache.Delete(userID)
}
