package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cachePrefix = "catalog:"

// CachedReader serves listing reads from Redis. Get always reaches the
// underlying reader so stock and active checks see live rows.
type CachedReader struct {
	next   Reader
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
	sfg    singleflight.Group
}

func NewCachedReader(next Reader, client *redis.Client, ttl time.Duration, logger *log.Logger) *CachedReader {
	return &CachedReader{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedReader) List(ctx context.Context, q Query) ([]Product, error) {
	q = q.normalized()
	var out []Product
	err := c.load(ctx, listKey(q), &out, func() (any, error) {
		return c.next.List(ctx, q)
	})
	return out, err
}

func (c *CachedReader) Count(ctx context.Context, q Query) (int, error) {
	var out int
	err := c.load(ctx, countKey(q.normalized()), &out, func() (any, error) {
		return c.next.Count(ctx, q)
	})
	return out, err
}

func (c *CachedReader) Popular(ctx context.Context, limit int) ([]Product, error) {
	var out []Product
	err := c.load(ctx, fmt.Sprintf("%spopular:%d", cachePrefix, limit), &out, func() (any, error) {
		return c.next.Popular(ctx, limit)
	})
	return out, err
}

func (c *CachedReader) Get(ctx context.Context, productID string) (Product, error) {
	return c.next.Get(ctx, productID)
}

// load fills dst from the cache or from fetch. Cache failures are logged and
// never fail the read.
func (c *CachedReader) load(ctx context.Context, key string, dst any, fetch func() (any, error)) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(data, dst); err == nil {
			return nil
		}
		c.logger.Printf("catalog cache: discard undecodable key=%s", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Printf("catalog cache: get key=%s: %v", key, err)
	}

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		res, err := fetch()
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		if err := c.client.Set(ctx, key, encoded, c.jitteredTTL()).Err(); err != nil {
			c.logger.Printf("catalog cache: set key=%s: %v", key, err)
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(v.([]byte), dst)
}

func (c *CachedReader) jitteredTTL() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(c.ttl)/5 + 1))
	return c.ttl + jitter
}

func filterKey(q Query) string {
	cats := make([]string, 0, len(q.Categories))
	for _, cat := range q.Categories {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	return fmt.Sprintf("c=%s|q=%s", strings.Join(cats, ","), strings.ToLower(q.Search))
}

func listKey(q Query) string {
	return fmt.Sprintf("%slist:%s|s=%s|p=%d|n=%d", cachePrefix, filterKey(q), q.Sort, q.Page, q.PerPage)
}

func countKey(q Query) string {
	return fmt.Sprintf("%scount:%s", cachePrefix, filterKey(q))
}
