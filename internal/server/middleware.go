package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/masstrack/internal/cache"
	obslogger "github.com/smallbiznis/masstrack/internal/observability/logger"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"go.uber.org/zap"
)

const contextPriestIDKey = "priest_id"

// AuthRequired resolves the bearer access token and scopes the request to its priest.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := priestcontext.WithPriestID(c.Request.Context(), principal.UserID)
		ctx = priestcontext.WithRole(ctx, string(principal.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPriestIDKey, principal.UserID.String())
		c.Next()
	}
}

// RateLimit throttles each client address with the shared token bucket. It is
// a no-op without redis.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.apiLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		res, err := s.apiLimiter.Allow(ctx, cache.Key(c.ClientIP()))
		if err != nil {
			// Fail open on limiter errors.
			obslogger.FromContext(ctx).Warn("api rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
