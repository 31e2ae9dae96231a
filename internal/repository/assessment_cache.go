package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lms_backend/internal/model"

	"github.com/go-redis/redis/v8"
)

// AssessmentCache holds assessments with their questions and options, stored
// under a per-assessment version. Invalidate bumps the version, so an entry
// filled from a read that started before the bump is never served. A miss
// returns (nil, nil).
type AssessmentCache interface {
	Version(ctx context.Context, id uint) (int64, error)
	Get(ctx context.Context, id uint, version int64) (*model.Assessment, error)
	Set(ctx context.Context, a *model.Assessment, version int64) error
	Invalidate(ctx context.Context, id uint) error
}

type RedisAssessmentCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisAssessmentCache(rdb *redis.Client, ttl time.Duration) *RedisAssessmentCache {
	return &RedisAssessmentCache{Redis: rdb, TTL: ttl}
}

func versionKey(id uint) string {
	return fmt.Sprintf("lms:assessment:%d:version", id)
}

func assessmentKey(id uint, version int64) string {
	return fmt.Sprintf("lms:assessment:%d:v%d", id, version)
}

func (c *RedisAssessmentCache) Version(ctx context.Context, id uint) (int64, error) {
	v, err := c.Redis.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *RedisAssessmentCache) Get(ctx context.Context, id uint, version int64) (*model.Assessment, error) {
	raw, err := c.Redis.Get(ctx, assessmentKey(id, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a model.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *RedisAssessmentCache) Set(ctx context.Context, a *model.Assessment, version int64) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, assessmentKey(a.ID, version), raw, c.TTL).Err()
}

// Invalidate bumps the version; old entries age out with the TTL.
func (c *RedisAssessmentCache) Invalidate(ctx context.Context, id uint) error {
	return c.Redis.Incr(ctx, versionKey(id)).Err()
}

// NopAssessmentCache is used when redis is disabled.
type NopAssessmentCache struct{}

func (NopAssessmentCache) Version(context.Context, uint) (int64, error) { return 0, nil }
func (NopAssessmentCache) Get(context.Context, uint, int64) (*model.Assessment, error) {
	return nil, nil
}
func (NopAssessmentCache) Set(context.Context, *model.Assessment, int64) error { return nil }
func (NopAssessmentCache) Invalidate(context.Context, uint) error              { return nil }
