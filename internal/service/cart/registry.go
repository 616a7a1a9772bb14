package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/pricing"
)

// SnapshotRepository persists the last known cart of each session.
type SnapshotRepository interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// Registry hands out one Store per session.
type Registry struct {
	remote    Remote
	snapshots SnapshotRepository
	policy    pricing.Policy
	logger    *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry wires a registry; snapshots may be nil to disable persistence.
func NewRegistry(remote Remote, snapshots SnapshotRepository, policy pricing.Policy, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		remote:    remote,
		snapshots: snapshots,
		policy:    policy,
		logger:    logger,
		stores:    make(map[string]*Store),
	}
}

func (r *Registry) Policy() pricing.Policy {
	return r.policy
}

// Open returns the session's store, creating it on first use. A new store
// starts from the persisted snapshot when one exists, otherwise empty.
func (r *Registry) Open(ctx context.Context, sess domain.Session) *Store {
	r.mu.Lock()
	if s, ok := r.stores[sess.ID]; ok {
		r.mu.Unlock()
		return s
	}
	r.mu.Unlock()

	initial := r.loadSnapshot(ctx, sess.ID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[sess.ID]; ok {
		return s
	}
	var saver snapshotSaver
	if r.snapshots != nil {
		saver = r.snapshots
	}
	s := newStore(sess, r.remote, saver, r.policy, r.logger, initial)
	r.stores[sess.ID] = s
	return s
}

// Close discards the session's store and its snapshot. A mutation still in
// flight on the store completes but no longer writes a snapshot.
func (r *Registry) Close(ctx context.Context, sessionID string) {
	r.mu.Lock()
	st, ok := r.stores[sessionID]
	delete(r.stores, sessionID)
	r.mu.Unlock()
	if ok {
		st.close()
	}
	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.Delete(ctx, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Warn("cart snapshot delete failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Len is the number of open stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func (r *Registry) loadSnapshot(ctx context.Context, sessionID string) domain.Cart {
	if r.snapshots == nil {
		return domain.Cart{}
	}
	snap, err := r.snapshots.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("cart snapshot load failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return domain.Cart{}
	}
	return *snap
}
