package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
)

const (
	keyPrefix  = "jobscout:detail:"
	DefaultTTL = 24 * time.Hour
)

// DetailCache keeps parsed detail pages in Redis so a repeated listing costs
// no gated request. Backend errors read as misses.
type DetailCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

var _ types.DetailCache = (*DetailCache)(nil)

// New accepts a redis:// URL or a bare host:port.
func New(addr string, ttl time.Duration, logger *zap.Logger) (*DetailCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		o, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		opts = o
	} else {
		opts = &redis.Options{Addr: addr}
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second

	return &DetailCache{client: redis.NewClient(opts), ttl: ttl, log: logger.Named("cache")}, nil
}

func key(jobID string) string { return keyPrefix + jobID }

func (c *DetailCache) Get(ctx context.Context, jobID string) (domain.Enrichment, bool) {
	val, err := c.client.Get(ctx, key(jobID)).Bytes()
	if err == redis.Nil {
		return domain.Enrichment{}, false
	}
	if err != nil {
		c.log.Debug("cache get failed", zap.String("job_id", jobID), zap.Error(err))
		return domain.Enrichment{}, false
	}
	var e domain.Enrichment
	if err := json.Unmarshal(val, &e); err != nil {
		c.log.Warn("corrupt cache entry", zap.String("job_id", jobID), zap.Error(err))
		return domain.Enrichment{}, false
	}
	return e, true
}

func (c *DetailCache) Set(ctx context.Context, jobID string, e domain.Enrichment) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(jobID), b, c.ttl).Err(); err != nil {
		c.log.Debug("cache set failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (c *DetailCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *DetailCache) Close() error {
	return c.client.Close()
}
