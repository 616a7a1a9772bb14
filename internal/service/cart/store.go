package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

// ErrProductRequired is returned when a mutation names no product.
var ErrProductRequired = errors.New("productId required")

// Remote is the external cart service. Every call returns the cart as the
// service sees it after the operation.
type Remote interface {
	Get(ctx context.Context, sess domain.Session) (domain.Cart, error)
	AddItem(ctx context.Context, sess domain.Session, productID string, quantity int) (domain.Cart, error)
	UpdateQuantity(ctx context.Context, sess domain.Session, productID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, sess domain.Session, productID string) (domain.Cart, error)
}

type snapshotSaver interface {
	Save(ctx context.Context, sessionID string, cart domain.Cart) error
}

// Store reflects one session's cart. Local state changes only after the
// remote call succeeds, and only one mutation may be in flight at a time.
type Store struct {
	sess   domain.Session
	remote Remote
	saver  snapshotSaver
	policy pricing.Policy
	logger *zap.Logger

	busy atomic.Bool

	mu   sync.RWMutex
	cart domain.Cart

	// saveMu orders snapshot writes against close; no write follows close.
	saveMu sync.Mutex
	closed bool
}

func newStore(sess domain.Session, remote Remote, saver snapshotSaver, policy pricing.Policy, logger *zap.Logger, initial domain.Cart) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sess:   sess,
		remote: remote,
		saver:  saver,
		policy: policy,
		logger: logger.With(zap.String("session_id", sess.ID)),
		cart:   domain.Normalize(initial.Items),
	}
}

// NewStore builds an empty store for sess without snapshot persistence.
func NewStore(sess domain.Session, remote Remote, policy pricing.Policy, logger *zap.Logger) *Store {
	return newStore(sess, remote, nil, policy, logger, domain.Cart{})
}

func (s *Store) Session() domain.Session {
	return s.sess
}

// Cart returns a copy of the current items.
func (s *Store) Cart() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Summary prices the current items.
func (s *Store) Summary() pricing.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy.Calculate(s.cart.Items)
}

func (s *Store) Policy() pricing.Policy {
	return s.policy
}

// Busy reports whether a mutation is in flight.
func (s *Store) Busy() bool {
	return s.busy.Load()
}

// AddItem adds quantity of productID, merging into an existing entry.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, ErrProductRequired
	}
	if quantity < 1 {
		return domain.Cart{}, domain.ErrInvalidQuantity
	}
	return s.mutate(ctx, "addItem", func(ctx context.Context) (domain.Cart, error) {
		return s.remote.AddItem(ctx, s.sess, productID, quantity)
	})
}

// UpdateQuantity sets the quantity of productID. Quantities below 1 are a
// no-op: nothing is sent and the current cart is returned; use RemoveItem.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, ErrProductRequired
	}
	if quantity < 1 {
		s.logger.Debug("ignoring quantity update below 1", zap.String("product_id", productID), zap.Int("quantity", quantity))
		return s.Cart(), nil
	}
	return s.mutate(ctx, "updateQuantity", func(ctx context.Context) (domain.Cart, error) {
		return s.remote.UpdateQuantity(ctx, s.sess, productID, quantity)
	})
}

func (s *Store) RemoveItem(ctx context.Context, productID string) (domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Cart{}, ErrProductRequired
	}
	return s.mutate(ctx, "removeItem", func(ctx context.Context) (domain.Cart, error) {
		return s.remote.RemoveItem(ctx, s.sess, productID)
	})
}

// Refresh replaces local state with the service's current cart.
func (s *Store) Refresh(ctx context.Context) (domain.Cart, error) {
	return s.mutate(ctx, "get", func(ctx context.Context) (domain.Cart, error) {
		return s.remote.Get(ctx, s.sess)
	})
}

func (s *Store) save(ctx context.Context, cart domain.Cart) {
	if s.saver == nil {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if s.closed {
		s.logger.Debug("session ended, snapshot not saved")
		return
	}
	if err := s.saver.Save(ctx, s.sess.ID, cart); err != nil {
		s.logger.Warn("cart snapshot save failed", zap.Error(err))
	}
}

// close stops snapshot writes. It waits for a write already under way.
func (s *Store) close() {
	s.saveMu.Lock()
	s.closed = true
	s.saveMu.Unlock()
}

func (s *Store) mutate(ctx context.Context, op string, call func(context.Context) (domain.Cart, error)) (domain.Cart, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return domain.Cart{}, domain.ErrBusy
	}
	defer s.busy.Store(false)

	updated, err := call(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrService) {
			err = &domain.ServiceError{Service: "cart", Op: op, Err: err}
		}
		s.logger.Warn("cart mutation failed", zap.String("op", op), zap.Error(err))
		return domain.Cart{}, err
	}

	next := domain.Normalize(updated.Items)
	s.mu.Lock()
	s.cart = next
	s.mu.Unlock()

	s.save(ctx, next)
	s.logger.Debug("cart updated", zap.String("op", op), zap.Int("items", len(next.Items)))
	return next.Clone(), nil
}
