package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/remote"
	sessionrepo "storefront/internal/repository/session"
)

// CartCloser discards the in-memory cart of an ended session.
type CartCloser interface {
	Close(ctx context.Context, sessionID string)
}

// Authenticator resolves an authentication service token to its user.
type Authenticator interface {
	Me(ctx context.Context, token string) (remote.Identity, error)
}

type Service struct {
	repo   sessionrepo.Repository
	carts  CartCloser
	auth   Authenticator
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// New wires the session service; auth may be nil when sign-in is not offered.
func New(repo sessionrepo.Repository, carts CartCloser, auth Authenticator, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Service{repo: repo, carts: carts, auth: auth, ttl: ttl, now: time.Now, logger: logger}
}

// IssueGuest starts an anonymous buyer session.
func (s *Service) IssueGuest(ctx context.Context) (domain.Session, error) {
	return s.issue(ctx, domain.Session{Role: domain.RoleBuyer})
}

// Issue starts a session for a signed-in user. The upstream token is what the
// authentication service handed out; it is forwarded on every outbound call.
func (s *Service) Issue(ctx context.Context, userID, username, email string, role domain.Role, upstreamToken string) (domain.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Session{}, errors.New("userId required")
	}
	uid := userID
	return s.issue(ctx, domain.Session{
		UserID:        &uid,
		Username:      username,
		Email:         email,
		Role:          domain.ParseRole(string(role)),
		UpstreamToken: upstreamToken,
	})
}

// SignIn exchanges an authentication service token for a storefront session
// of that user. Tokens the service rejects are ErrUnauthorized.
func (s *Service) SignIn(ctx context.Context, upstreamToken string) (domain.Session, error) {
	upstreamToken = strings.TrimSpace(upstreamToken)
	if upstreamToken == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	if s.auth == nil {
		return domain.Session{}, errors.New("sign-in not configured")
	}
	id, err := s.auth.Me(ctx, upstreamToken)
	if err != nil {
		var se *domain.ServiceError
		if errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
			return domain.Session{}, domain.ErrUnauthorized
		}
		return domain.Session{}, fmt.Errorf("sign in: %w", err)
	}
	return s.Issue(ctx, id.UserID, id.Username, id.Email, id.Role, upstreamToken)
}

func (s *Service) issue(ctx context.Context, sess domain.Session) (domain.Session, error) {
	now := s.now().UTC()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(s.ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return domain.Session{}, err
		}
		sess.ID = uuid.NewString()
		sess.Token = token
		err = s.repo.Create(ctx, sess)
		if err == nil {
			s.logger.Info("session issued", zap.String("session_id", sess.ID), zap.String("role", string(sess.Role)), zap.Bool("guest", sess.IsGuest()))
			return sess, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return domain.Session{}, errors.New("session token collision")
}

// Resolve maps a bearer token to its live session. Unknown and expired tokens
// are ErrUnauthorized; expired sessions are removed on the way.
func (s *Service) Resolve(ctx context.Context, token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	sess, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrUnauthorized
		}
		return domain.Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if sess.Expired(s.now()) {
		s.End(ctx, *sess)
		return domain.Session{}, domain.ErrUnauthorized
	}
	return *sess, nil
}

// End deletes the session and discards its cart.
func (s *Service) End(ctx context.Context, sess domain.Session) {
	if err := s.repo.Delete(ctx, sess.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("session delete failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	if s.carts != nil {
		s.carts.Close(ctx, sess.ID)
	}
}

// Sweep removes expired sessions with their carts and reports how many went.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ids, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	if s.carts != nil {
		for _, id := range ids {
			s.carts.Close(ctx, id)
		}
	}
	if len(ids) > 0 {
		s.logger.Info("expired sessions removed", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
