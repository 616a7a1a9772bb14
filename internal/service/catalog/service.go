package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"storefront/internal/domain"
)

// Lister is the external catalog service.
type Lister interface {
	List(ctx context.Context, sess domain.Session, query url.Values) ([]domain.Product, error)
}

type Service struct {
	lister   Lister
	cache    ListingCache
	pageSize int
	logger   *zap.Logger
	sfg      singleflight.Group
}

// New wires the catalog view; cache may be nil to always go upstream.
func New(lister Lister, cache ListingCache, pageSize int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize < 1 {
		pageSize = DefaultLimit
	}
	return &Service{lister: lister, cache: cache, pageSize: pageSize, logger: logger}
}

// sharedCallTimeout bounds a coalesced upstream listing, which runs detached
// from any single caller.
const sharedCallTimeout = 30 * time.Second

// List returns the products matching f. Identical concurrent listings of the
// same audience share one upstream call and cached listings skip it entirely.
// A caller that gives up returns its own ctx error; the shared call goes on
// for the others.
func (s *Service) List(ctx context.Context, sess domain.Session, f Filters) ([]domain.Product, error) {
	query := f.Query(s.pageSize)
	key := audienceKey(sess) + query.Encode()

	ch := s.sfg.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		return s.load(shared, sess, key, query)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.Warn("catalog listing failed", zap.String("query", query.Encode()), zap.Error(res.Err))
			return nil, res.Err
		}
		return res.Val.([]domain.Product), nil
	}
}

func (s *Service) load(ctx context.Context, sess domain.Session, key string, query url.Values) ([]domain.Product, error) {
	if s.cache != nil {
		products, err := s.cache.Get(ctx, key)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("catalog cache get failed", zap.Error(err))
		}
	}

	products, err := s.lister.List(ctx, sess, query)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, products); err != nil {
			s.logger.Warn("catalog cache set failed", zap.Error(err))
		}
	}
	return products, nil
}

// audienceKey separates listings fetched with different upstream tokens, since
// the catalog may answer per caller. Anonymous listings share one audience.
// Only a digest of the token ends up in cache keys.
func audienceKey(sess domain.Session) string {
	if sess.UpstreamToken == "" {
		return "anon|"
	}
	sum := sha256.Sum256([]byte(sess.UpstreamToken))
	return "tok:" + hex.EncodeToString(sum[:8]) + "|"
}

// Invalidate drops cached listings after a product change.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Flush(ctx); err != nil {
		s.logger.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}

// Categories returns the shop's browsable categories.
func (s *Service) Categories() []domain.Category {
	out := make([]domain.Category, len(domain.Categories))
	copy(out, domain.Categories)
	return out
}
