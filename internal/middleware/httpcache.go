package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	APICachePrefix    = "helio:api-cache:"
	CacheStatusHeader = "X-Site-Cache"

	// apiCacheIndex is a set of every live cache key, so purges need no SCAN.
	apiCacheIndex    = APICachePrefix + "index"
	apiCacheIndexTTL = 24 * time.Hour

	// apiCacheGeneration is bumped by every purge. A response computed
	// under an older generation is not stored.
	apiCacheGeneration = APICachePrefix + "generation"

	defaultHTTPCacheTTL     = 15 * time.Second
	defaultHTTPCacheMaxBody = 1 << 20
)

type HTTPCacheOptions struct {
	TTL          time.Duration
	MaxBodyBytes int
}

// cachedEntry is stored as a Redis hash: status, type, body.
type cachedEntry struct {
	Status      int
	ContentType string
	Body        []byte
}

type cacheBodyWriter struct {
	gin.ResponseWriter
	body         []byte
	maxBodyBytes int
	overflow     bool
}

func (w *cacheBodyWriter) Write(data []byte) (int, error) {
	w.capture(data)
	return w.ResponseWriter.Write(data)
}

func (w *cacheBodyWriter) WriteString(s string) (int, error) {
	w.capture([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *cacheBodyWriter) capture(data []byte) {
	if w.overflow || len(data) == 0 {
		return
	}
	if len(w.body)+len(data) > w.maxBodyBytes {
		w.overflow = true
		w.body = nil
		return
	}
	w.body = append(w.body, data...)
}

// HTTPCache caches anonymous GET responses in Redis for a short TTL. Admin
// requests are never served from or written to the cache.
func HTTPCache(rdb *redis.Client, opts HTTPCacheOptions) gin.HandlerFunc {
	if opts.TTL <= 0 {
		opts.TTL = defaultHTTPCacheTTL
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultHTTPCacheMaxBody
	}
	maxAge := "public, max-age=" + strconv.Itoa(int(opts.TTL/time.Second))

	return func(c *gin.Context) {
		if rdb == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		if IsAuthenticated(c) || ExtractToken(c) != "" {
			c.Header("Cache-Control", "private, no-store")
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := APICachePrefix + c.Request.URL.RequestURI()
		if payload, ok := readCachedResponse(ctx, rdb, cacheKey); ok {
			c.Header(CacheStatusHeader, "hit")
			c.Header("Cache-Control", maxAge)
			c.Data(payload.Status, payload.ContentType, payload.Body)
			c.Abort()
			return
		}

		generation := cacheGeneration(ctx, rdb)
		buffer := &cacheBodyWriter{ResponseWriter: c.Writer, maxBodyBytes: opts.MaxBodyBytes}
		c.Writer = buffer
		c.Header(CacheStatusHeader, "miss")
		c.Next()

		if c.Writer.Status() != http.StatusOK || buffer.overflow || len(buffer.body) == 0 {
			return
		}
		if cc := strings.ToLower(c.Writer.Header().Get("Cache-Control")); strings.Contains(cc, "no-store") || strings.Contains(cc, "private") {
			return
		}

		entry := cachedEntry{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        buffer.body,
		}
		if err := storeCachedEntry(ctx, rdb, cacheKey, entry, opts.TTL, generation); err != nil && !errors.Is(err, redis.TxFailedErr) {
			_ = c.Error(err)
		}
	}
}

// PurgeHTTPCache drops every cached response and reports how many were
// still live. Requests already in flight will not store their result.
func PurgeHTTPCache(ctx context.Context, rdb *redis.Client) (int64, error) {
	if rdb == nil {
		return 0, nil
	}
	keys, err := rdb.SMembers(ctx, apiCacheIndex).Result()
	if err != nil {
		return 0, err
	}
	var deleted *redis.IntCmd
	_, err = rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, apiCacheGeneration)
		if len(keys) > 0 {
			deleted = p.Del(ctx, keys...)
			p.SRem(ctx, apiCacheIndex, stringsToAny(keys)...)
		}
		return nil
	})
	if err != nil || deleted == nil {
		return 0, err
	}
	return deleted.Val(), nil
}

func cacheGeneration(ctx context.Context, rdb redis.Cmdable) int64 {
	n, err := rdb.Get(ctx, apiCacheGeneration).Int64()
	if err != nil {
		return 0
	}
	return n
}

// storeCachedEntry writes the entry only if no purge ran since generation
// was read. WATCH makes a purge racing with the write abort the EXEC.
func storeCachedEntry(ctx context.Context, rdb *redis.Client, key string, e cachedEntry, ttl time.Duration, generation int64) error {
	return rdb.Watch(ctx, func(tx *redis.Tx) error {
		if cacheGeneration(ctx, tx) != generation {
			return nil
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "status", e.Status, "type", e.ContentType, "body", e.Body)
			p.Expire(ctx, key, ttl)
			p.SAdd(ctx, apiCacheIndex, key)
			p.Expire(ctx, apiCacheIndex, apiCacheIndexTTL)
			return nil
		})
		return err
	}, apiCacheGeneration)
}

func readCachedResponse(ctx context.Context, rdb *redis.Client, key string) (cachedEntry, bool) {
	fields, err := rdb.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return cachedEntry{}, false
	}
	body, ok := fields["body"]
	if !ok {
		return cachedEntry{}, false
	}
	e := cachedEntry{Status: http.StatusOK, ContentType: fields["type"], Body: []byte(body)}
	if n, err := strconv.Atoi(fields["status"]); err == nil && n > 0 {
		e.Status = n
	}
	if e.ContentType == "" {
		e.ContentType = "application/json; charset=utf-8"
	}
	return e, true
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
