package credentials

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/restock-systems/stockwatch/common/logging"
	"github.com/restock-systems/stockwatch/internal/metrics"
	"github.com/restock-systems/stockwatch/internal/models"
)

// DefaultRefreshMargin is how long before expiry a cached token is replaced.
const DefaultRefreshMargin = 5 * time.Minute

// RefreshTimeout bounds a shared refresh, which outlives the caller that
// started it.
const RefreshTimeout = 30 * time.Second

// CachingExchanger reuses tokens until they are within the refresh margin
// of expiry. Concurrent refreshes for one credential share a single exchange.
type CachingExchanger struct {
	source TokenSource
	cache  TokenCache
	margin time.Duration
	group  singleflight.Group
	logger  *logging.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewCachingExchanger wraps source with cache.
func NewCachingExchanger(source TokenSource, cache TokenCache, margin time.Duration, logger *logging.Logger) *CachingExchanger {
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachingExchanger{
		source:  source,
		cache:   cache,
		margin:  margin,
		logger:  logger,
		now:     time.Now,
		timeout: RefreshTimeout,
	}
}

// AccessToken returns a cached token or exchanges for a new one.
func (c *CachingExchanger) AccessToken(ctx context.Context, cred *models.ServiceCredential) (*models.AccessToken, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	key := cred.ClientEmail

	if tok := c.lookup(ctx, key); tok != nil {
		metrics.TokenCacheLookupsTotal.WithLabelValues("hit").Inc()
		return tok, nil
	}
	metrics.TokenCacheLookupsTotal.WithLabelValues("miss").Inc()

	// Shared refreshes run detached from the caller's context; each caller
	// stops waiting on its own.
	ch := c.group.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		// Another caller may have refreshed while we waited.
		if tok := c.lookup(rctx, key); tok != nil {
			return tok, nil
		}
		tok, err := c.source.AccessToken(rctx, cred)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(rctx, key, tok); err != nil {
			c.logger.WarnContext(rctx, "failed to cache access token", logging.Error(err))
		}
		return tok, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.AccessToken), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *CachingExchanger) lookup(ctx context.Context, key string) *models.AccessToken {
	tok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "token cache lookup failed", logging.Error(err))
		return nil
	}
	if tok.ValidFor(c.now(), c.margin) {
		return tok
	}
	return nil
}
