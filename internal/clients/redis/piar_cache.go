package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/orienta-edu/orienta-backend/internal/domain"
	"github.com/orienta-edu/orienta-backend/internal/platform/envutil"
	"github.com/orienta-edu/orienta-backend/internal/platform/logger"
)

// PiarCache is a read-through cache for PIAR records. Every operation is
// best-effort: a redis outage degrades to database reads, it never fails
// a request.
type PiarCache interface {
	Get(ctx context.Context, studentID uuid.UUID) (*domain.PiarRecord, bool)
	Set(ctx context.Context, rec *domain.PiarRecord)
	Invalidate(ctx context.Context, studentID uuid.UUID)
	Close() error
}

type piarCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewPiarCache(log *logger.Logger) (PiarCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &piarCache{
		log: log.With("service", "PiarCache"),
		rdb: rdb,
		ttl: envutil.Duration("PIAR_CACHE_TTL", 10*time.Minute),
	}, nil
}

func piarKey(studentID uuid.UUID) string {
	return "piar:" + studentID.String()
}

func (c *piarCache) Get(ctx context.Context, studentID uuid.UUID) (*domain.PiarRecord, bool) {
	raw, err := c.rdb.Get(ctx, piarKey(studentID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Debug("piar cache read failed", "student_id", studentID, "error", err)
		}
		return nil, false
	}
	var rec domain.PiarRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.log.Warn("piar cache entry corrupt, dropping", "student_id", studentID, "error", err)
		c.Invalidate(ctx, studentID)
		return nil, false
	}
	return &rec, true
}

func (c *piarCache) Set(ctx context.Context, rec *domain.PiarRecord) {
	if rec == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, piarKey(rec.StudentID), raw, c.ttl).Err(); err != nil {
		c.log.Debug("piar cache write failed", "student_id", rec.StudentID, "error", err)
	}
}

func (c *piarCache) Invalidate(ctx context.Context, studentID uuid.UUID) {
	if err := c.rdb.Del(ctx, piarKey(studentID)).Err(); err != nil {
		c.log.Debug("piar cache invalidate failed", "student_id", studentID, "error", err)
	}
}

func (c *piarCache) Close() error {
	return c.rdb.Close()
}
