package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"PatternSentinel/internal/model"
)

// SeriesCache stores encoded bar histories by key.
type SeriesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedFetcher serves repeated requests from a SeriesCache and falls
// through to Next on a miss. Cache failures are logged and never fail the
// fetch.
type CachedFetcher struct {
	Next   Fetcher
	Cache  SeriesCache
	TTL    time.Duration
	Logger *slog.Logger
}

// NewCachedFetcher wraps next with cache.
func NewCachedFetcher(next Fetcher, cache SeriesCache, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedFetcher{Next: next, Cache: cache, TTL: ttl, Logger: logger}
}

func (c *CachedFetcher) Name() string { return c.Next.Name() + "+cache" }

func (c *CachedFetcher) FetchSeries(ctx context.Context, symbol string, period Period, r Range) ([]model.Bar, error) {
	key := cacheKey(c.Next.Name(), symbol, period, r)
	if data, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.Logger.Warn("series cache get failed", "key", key, "err", err)
	} else if ok {
		var cached []cachedBar
		if err := json.Unmarshal(data, &cached); err == nil {
			return fromCached(cached), nil
		}
		c.Logger.Warn("series cache entry unreadable", "key", key)
	}

	bars, err := c.Next.FetchSeries(ctx, symbol, period, r)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(toCached(bars))
	if err != nil {
		c.Logger.Warn("series cache encode failed", "key", key, "err", err)
		return bars, nil
	}
	if err := c.Cache.Set(ctx, key, data, c.TTL); err != nil {
		c.Logger.Warn("series cache set failed", "key", key, "err", err)
	}
	return bars, nil
}

func cacheKey(source, symbol string, period Period, r Range) string {
	key := fmt.Sprintf("sentinel:bars:%s:%s:%s:%d", source, symbol, period, r.Limit)
	if !r.Start.IsZero() || !r.End.IsZero() {
		key += ":" + r.Start.Format("20060102") + "-" + r.End.Format("20060102")
	}
	return key
}

// cachedBar mirrors model.Bar with nullable floats, since JSON has no NaN.
type cachedBar struct {
	Date         time.Time `json:"d"`
	Open         *float64  `json:"o,omitempty"`
	High         *float64  `json:"h,omitempty"`
	Low          *float64  `json:"l,omitempty"`
	Close        *float64  `json:"c,omitempty"`
	Volume       *float64  `json:"v,omitempty"`
	Amount       *float64  `json:"a,omitempty"`
	PctChg       *float64  `json:"p,omitempty"`
	TurnoverRate *float64  `json:"t,omitempty"`
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toCached(bars []model.Bar) []cachedBar {
	out := make([]cachedBar, len(bars))
	for i, b := range bars {
		out[i] = cachedBar{
			Date:         b.Date,
			Open:         nullable(b.Open),
			High:         nullable(b.High),
			Low:          nullable(b.Low),
			Close:        nullable(b.Close),
			Volume:       nullable(b.Volume),
			Amount:       nullable(b.Amount),
			PctChg:       nullable(b.PctChg),
			TurnoverRate: nullable(b.TurnoverRate),
		}
	}
	return out
}

func fromCached(cached []cachedBar) []model.Bar {
	out := make([]model.Bar, len(cached))
	for i, c := range cached {
		out[i] = model.Bar{
			Date:         c.Date,
			Open:         orNaN(c.Open),
			High:         orNaN(c.High),
			Low:          orNaN(c.Low),
			Close:        orNaN(c.Close),
			Volume:       orNaN(c.Volume),
			Amount:       orNaN(c.Amount),
			PctChg:       orNaN(c.PctChg),
			TurnoverRate: orNaN(c.TurnoverRate),
		}
	}
	return out
}

// RedisCache is a SeriesCache on a Redis server.
type RedisCache struct {
	client *goredis.Client
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache creates the client and pings the server.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Ping checks the server connection.
func (r *RedisCache) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisCache) Close() error { return r.client.Close() }
