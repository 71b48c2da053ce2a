package embedding

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// Cache stores converted, normalized vectors keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

func CacheKey(provider, taskType, text string) string {
	sum := blake2b.Sum256([]byte(provider + "\x00" + taskType + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}

// TieredCache is an in-process go-cache in front of an optional Redis.
type TieredCache struct {
	local *gocache.Cache
	redis *redis.Client
	ttl   time.Duration
}

func NewTieredCache(local *gocache.Cache, rdb *redis.Client, ttl time.Duration) *TieredCache {
	return &TieredCache{local: local, redis: rdb, ttl: ttl}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]float32, bool) {
	if v, ok := c.local.Get(key); ok {
		if vec, ok := v.([]float32); ok {
			out := make([]float32, len(vec))
			copy(out, vec)
			return out, true
		}
	}
	if c.redis == nil {
		return nil, false
	}

	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	vec, ok := decodeVector(raw)
	if !ok {
		return nil, false
	}
	c.local.SetDefault(key, vec)
	return vec, true
}

func (c *TieredCache) Set(ctx context.Context, key string, vec []float32) {
	c.local.SetDefault(key, vec)
	if c.redis == nil {
		return
	}
	// L2 is best effort
	_ = c.redis.Set(ctx, key, encodeVector(vec), c.ttl).Err()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, bool) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, true
}
