package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/match"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/store"
)

// Cached memoizes Search results of another collaborator. Extraction is never
// cached since phones are what a run is trying to refresh.
type Cached struct {
	inner     match.Collaborator
	cache     store.Cache
	ttl       time.Duration
	namespace string
}

// NewCached wraps inner. namespace keeps entries of different providers apart.
func NewCached(inner match.Collaborator, cache store.Cache, namespace string, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: cache, ttl: ttl, namespace: namespace}
}

func (c *Cached) key(query string) string {
	return "search:" + c.namespace + ":" + query
}

// Search returns cached results when present, otherwise searches and stores
// the result. Cache failures are logged and bypassed.
func (c *Cached) Search(ctx context.Context, query string) ([]model.Candidate, error) {
	key := c.key(query)
	if data, err := c.cache.GetCachedSearch(ctx, key); err != nil {
		zap.L().Warn("provider: cache read", zap.String("key", key), zap.Error(err))
	} else if data != nil {
		var cands []model.Candidate
		if err := json.Unmarshal(data, &cands); err == nil {
			zap.L().Debug("provider: cache hit", zap.String("key", key))
			return cands, nil
		}
		zap.L().Warn("provider: corrupt cache entry", zap.String("key", key))
	}

	cands, err := c.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cands)
	if err != nil {
		return nil, eris.Wrap(err, "provider: marshal candidates")
	}
	if err := c.cache.SetCachedSearch(ctx, key, data, c.ttl); err != nil {
		zap.L().Warn("provider: cache write", zap.String("key", key), zap.Error(err))
	}
	return cands, nil
}

// ExtractDirect delegates to the wrapped collaborator.
func (c *Cached) ExtractDirect(ctx context.Context, cand model.Candidate) (model.ExtractionResult, error) {
	return c.inner.ExtractDirect(ctx, cand)
}

// ExtractDetail delegates to the wrapped collaborator.
func (c *Cached) ExtractDetail(ctx context.Context, cand model.Candidate) (model.ExtractionResult, error) {
	return c.inner.ExtractDetail(ctx, cand)
}

// Reset forwards to the wrapped collaborator when it keeps a session.
func (c *Cached) Reset(ctx context.Context) error {
	if r, ok := c.inner.(match.Resetter); ok {
		return r.Reset(ctx)
	}
	return nil
}

// Close forwards to the wrapped collaborator when it holds resources.
func (c *Cached) Close() error {
	if cl, ok := c.inner.(match.Closer); ok {
		return cl.Close()
	}
	return nil
}
