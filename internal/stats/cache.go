package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service answers stats queries, fronting the event store with an optional
// redis cache. With no redis configured every query hits the store.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewService(db *gorm.DB, logger *zap.Logger, redisAddr, redisPassword string, ttl time.Duration) *Service {
	s := &Service{db: db, logger: logger, ttl: ttl}

	if redisAddr != "" {
		s.client = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: redisPassword,
		})
	}

	return s
}

func (s *Service) Get(ctx context.Context, monitorID uint, region, interval string) (*Summary, error) {
	interval = normalizeInterval(interval)

	window, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("stats:%d:%s:%s", monitorID, region, interval)

	if cached := s.lookup(ctx, key); cached != nil {
		return cached, nil
	}

	summary, err := Compute(s.db, monitorID, region, window)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, summary)

	return summary, nil
}

// Invalidate drops every cached window for a monitor, used when the monitor
// is deleted.
func (s *Service) Invalidate(ctx context.Context, monitorID uint) {
	if s.client == nil {
		return
	}

	for interval := range intervals {
		pattern := fmt.Sprintf("stats:%d:*:%s", monitorID, interval)
		keys, err := s.client.Keys(ctx, pattern).Result()
		if err != nil {
			continue
		}
		if len(keys) > 0 {
			s.client.Del(ctx, keys...)
		}
	}
}

func (s *Service) lookup(ctx context.Context, key string) *Summary {
	if s.client == nil {
		return nil
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}

	var summary Summary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil
	}

	return &summary
}

func (s *Service) store(ctx context.Context, key string, summary *Summary) {
	if s.client == nil {
		return
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}

	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to cache stats", zap.String("key", key), zap.Error(err))
	}
}
