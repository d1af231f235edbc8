package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/nivala/pricing/internal/audit/domain"
	obscontext "github.com/nivala/pricing/internal/observability/context"
	"github.com/nivala/pricing/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	rateLimitReasonUserRate   = "user-rate"
	rateLimitReasonGlobalRate = "global-rate"
)

// AdminKeyRequired authenticates requests with a bearer admin API key and
// stashes the key's identity in the request context so audit rows can name
// the actor.
func (s *Server) AdminKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		key, err := s.adminKeySvc.Verify(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorAdmin), key.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(c.GetHeader("X-Api-Key"))
}

// actorFromContext resolves the admin identity set by AdminKeyRequired.
func actorFromContext(c *gin.Context) string {
	_, actorID := obscontext.ActorFromContext(c.Request.Context())
	return actorID
}

type sessionIngestRateLimitKey struct {
	UserRef string `json:"user_ref"`
}

func (s *Server) SessionIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.ingestLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		allowed, err := s.ingestLimiter.AllowGlobal(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("session ingest global rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !allowed {
			denySessionIngest(c, rateLimitReasonGlobalRate)
			return
		}

		userRef, err := readSessionIngestKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("session ingest rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		if userRef != "" {
			allowed, err = s.ingestLimiter.AllowUser(ctx, userRef)
			if err != nil {
				logger.FromContext(ctx).Warn("session ingest user rate limit check failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			if !allowed {
				denySessionIngest(c, rateLimitReasonUserRate)
				return
			}
		}

		c.Next()
	}
}

func denySessionIngest(c *gin.Context, reason string) {
	logger.FromContext(c.Request.Context()).Warn("session ingest rate limit exceeded",
		zap.String("reason", reason),
	)
	c.Header("Retry-After", "1")
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func readSessionIngestKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload sessionIngestRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.UserRef), nil
}
