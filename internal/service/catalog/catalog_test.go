package catalog

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

func TestResolveSort(t *testing.T) {
	tests := []struct {
		option string
		want   Sort
	}{
		{option: "newest", want: Sort{Field: "createdAt", Order: "asc"}},
		{option: "price-asc", want: Sort{Field: "price", Order: "asc"}},
		{option: "price-desc", want: Sort{Field: "price", Order: "desc"}},
		{option: "rating", want: Sort{Field: "rating", Order: "desc"}},
		{option: "name", want: Sort{Field: "name", Order: "asc"}},
		{option: "", want: Sort{Field: "name", Order: "asc"}},
		{option: "cheapest", want: Sort{Field: "name", Order: "asc"}},
	}
	for _, tt := range tests {
		t.Run(tt.option, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveSort(tt.option))
		})
	}
}

func TestFiltersQuery(t *testing.T) {
	q := Filters{Category: "rings", Search: " diamant ", MaxPrice: "500", SortBy: "price-desc"}.Query(50)
	assert.Equal(t, url.Values{
		"category":  {"rings"},
		"search":    {"diamant"},
		"maxPrice":  {"500"},
		"sortBy":    {"price"},
		"sortOrder": {"desc"},
		"page":      {"1"},
		"limit":     {"50"},
	}, q)

	q = Filters{Page: 3, Limit: 12}.Query(0)
	assert.Equal(t, "3", q.Get("page"))
	assert.Equal(t, "12", q.Get("limit"))
	assert.False(t, q.Has("category"))
	assert.False(t, q.Has("minPrice"))

	assert.Equal(t, "50", Filters{}.Query(0).Get("limit"))
}

type stubLister struct {
	calls    atomic.Int32
	err      error
	gate     chan struct{}
	lastSeen url.Values
	tokens   []string
	mu       sync.Mutex
}

func (s *stubLister) List(ctx context.Context, sess domain.Session, query url.Values) ([]domain.Product, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	s.lastSeen = query
	s.tokens = append(s.tokens, sess.UpstreamToken)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Product{
		{ID: "p1", Name: "Bague", Price: decimal.RequireFromString("1299.99"), ImageURLs: []string{}, Category: query.Get("category")},
	}, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestServiceListCaches(t *testing.T) {
	_, client := newRedis(t)
	lister := &stubLister{}
	svc := New(lister, NewRedisCache(client, time.Minute), 50, nil)
	ctx := context.Background()

	first, err := svc.List(ctx, domain.Session{}, Filters{Category: "rings"})
	require.NoError(t, err)
	second, err := svc.List(ctx, domain.Session{}, Filters{Category: "rings"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), lister.calls.Load())
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, second[0].Price.Equal(first[0].Price))

	_, err = svc.List(ctx, domain.Session{}, Filters{Category: "necklaces"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestServiceInvalidate(t *testing.T) {
	mr, client := newRedis(t)
	lister := &stubLister{}
	svc := New(lister, NewRedisCache(client, time.Minute), 50, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, domain.Session{}, Filters{})
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 1)

	svc.Invalidate(ctx)
	assert.Empty(t, mr.Keys())

	_, err = svc.List(ctx, domain.Session{}, Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestServiceCacheExpires(t *testing.T) {
	mr, client := newRedis(t)
	lister := &stubLister{}
	svc := New(lister, NewRedisCache(client, time.Minute), 50, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, domain.Session{}, Filters{})
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = svc.List(ctx, domain.Session{}, Filters{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestServiceCoalescesConcurrentListings(t *testing.T) {
	lister := &stubLister{gate: make(chan struct{})}
	svc := New(lister, nil, 50, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.List(context.Background(), domain.Session{}, Filters{SortBy: "rating"})
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(lister.gate)
	wg.Wait()
	assert.LessOrEqual(t, lister.calls.Load(), int32(8))
	assert.GreaterOrEqual(t, lister.calls.Load(), int32(1))
}

func TestServiceWorksWhenCacheIsDown(t *testing.T) {
	mr, client := newRedis(t)
	lister := &stubLister{}
	svc := New(lister, NewRedisCache(client, time.Minute), 50, nil)
	mr.Close()

	products, err := svc.List(context.Background(), domain.Session{}, Filters{})
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestServiceListError(t *testing.T) {
	lister := &stubLister{err: &domain.ServiceError{Service: "catalog", Op: "list", Status: 500}}
	svc := New(lister, nil, 50, nil)

	_, err := svc.List(context.Background(), domain.Session{}, Filters{})
	assert.True(t, errors.Is(err, domain.ErrService))
}

func TestServicePassesQueryUpstream(t *testing.T) {
	lister := &stubLister{}
	svc := New(lister, nil, 24, nil)
	_, err := svc.List(context.Background(), domain.Session{}, Filters{SortBy: "newest", MinPrice: "10"})
	require.NoError(t, err)

	lister.mu.Lock()
	defer lister.mu.Unlock()
	assert.Equal(t, "createdAt", lister.lastSeen.Get("sortBy"))
	assert.Equal(t, "asc", lister.lastSeen.Get("sortOrder"))
	assert.Equal(t, "10", lister.lastSeen.Get("minPrice"))
	assert.Equal(t, "24", lister.lastSeen.Get("limit"))
}

func TestCategories(t *testing.T) {
	svc := New(&stubLister{}, nil, 0, nil)
	cats := svc.Categories()
	require.Len(t, cats, 5)
	assert.Equal(t, "", cats[0].ID)
	assert.Equal(t, "rings", cats[1].ID)
	cats[1].Name = "changed"
	assert.Equal(t, "Bagues", domain.Categories[1].Name)
}

func TestServiceCallerCancelDoesNotFailSharedListing(t *testing.T) {
	lister := &stubLister{gate: make(chan struct{})}
	svc := New(lister, nil, 50, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.List(ctxA, domain.Session{}, Filters{Category: "rings"})
		errA <- err
	}()
	require.Eventually(t, func() bool { return lister.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		products []domain.Product
		err      error
	}
	resB := make(chan result, 1)
	go func() {
		products, err := svc.List(context.Background(), domain.Session{}, Filters{Category: "rings"})
		resB <- result{products, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(lister.gate)
	b := <-resB
	require.NoError(t, b.err)
	require.Len(t, b.products, 1)
	assert.Equal(t, int32(1), lister.calls.Load())
}

func TestServiceSeparatesAudiences(t *testing.T) {
	mr, client := newRedis(t)
	lister := &stubLister{}
	svc := New(lister, NewRedisCache(client, time.Minute), 50, nil)
	ctx := context.Background()

	seller := domain.Session{ID: "s", Role: domain.RoleSeller, UpstreamToken: "seller-secret"}
	admin := domain.Session{ID: "a", Role: domain.RoleAdmin, UpstreamToken: "admin-secret"}

	for _, sess := range []domain.Session{{}, {}, seller, admin, seller, {Role: domain.RoleBuyer}} {
		_, err := svc.List(ctx, sess, Filters{Category: "rings"})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), lister.calls.Load())
	lister.mu.Lock()
	assert.Equal(t, []string{"", "seller-secret", "admin-secret"}, lister.tokens)
	lister.mu.Unlock()

	keys := mr.Keys()
	assert.Len(t, keys, 3)
	for _, k := range keys {
		assert.False(t, strings.Contains(k, "secret"), k)
	}
}
