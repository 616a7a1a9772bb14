package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type ctxKey string

const sessionCtxKey ctxKey = "session"

// sessionMiddleware resolves the bearer token into a session and stores it in
// the request context. Optional routes fall through as an anonymous buyer
// when no token is sent.
func sessionMiddleware(svc SessionService, logger *zap.Logger, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if required {
				writeError(c, logger, domain.ErrUnauthorized)
				c.Abort()
				return
			}
			withSession(c, domain.Session{Role: domain.RoleBuyer})
			c.Next()
			return
		}

		sess, err := svc.Resolve(c.Request.Context(), token)
		if err != nil {
			writeError(c, logger, err)
			c.Abort()
			return
		}
		withSession(c, sess)
		c.Next()
	}
}

// requireRole rejects sessions whose role is not listed.
func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, _ := sessionFrom(c)
		for _, r := range roles {
			if sess.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: domain.ErrForbidden.Error()})
	}
}

func withSession(c *gin.Context, sess domain.Session) {
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), sessionCtxKey, sess))
}

func sessionFrom(c *gin.Context) (domain.Session, bool) {
	sess, ok := c.Request.Context().Value(sessionCtxKey).(domain.Session)
	return sess, ok
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type sessionResponse struct {
	Token     string         `json:"token"`
	Session   domain.Session `json:"session"`
	ExpiresIn int            `json:"expiresIn"`
}

func (h *handlers) issueGuest(c *gin.Context) {
	sess, err := h.deps.Sessions.IssueGuest(c.Request.Context())
	h.respondSession(c, sess, err)
}

type signInRequest struct {
	Token string `json:"token" binding:"required"`
}

// signIn exchanges an authentication service token for a storefront session.
func (h *handlers) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Message: err.Error()})
		return
	}
	sess, err := h.deps.Sessions.SignIn(c.Request.Context(), req.Token)
	h.respondSession(c, sess, err)
}

func (h *handlers) respondSession(c *gin.Context, sess domain.Session, err error) {
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{
		Token:     sess.Token,
		Session:   sess,
		ExpiresIn: int(sess.ExpiresAt.Sub(sess.CreatedAt).Seconds()),
	})
}

func (h *handlers) endSession(c *gin.Context) {
	sess, ok := sessionFrom(c)
	if !ok {
		writeError(c, h.logger, errors.New("session missing from context"))
		return
	}
	h.deps.Sessions.End(c.Request.Context(), sess)
	c.Status(http.StatusNoContent)
}

type dashboardResponse struct {
	Role     domain.Role `json:"role"`
	Redirect string      `json:"redirect"`
}

func (h *handlers) dashboard(c *gin.Context) {
	sess, _ := sessionFrom(c)
	c.JSON(http.StatusOK, dashboardResponse{Role: sess.Role, Redirect: sess.Role.DashboardPath()})
}
