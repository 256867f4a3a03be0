package middleware

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"peerbridge-backend/pkg/auth"
	"peerbridge-backend/pkg/common"
)

// Authenticate validates the bearer token and puts the caller's user
// context on the request. In Lambda the API Gateway JWT authorizer has
// already validated the token; there we trust the forwarded headers.
func Authenticate(validator *auth.JWTValidator, isLambda bool, logger *zap.Logger) func(next http.Handler) http.Handler {
	if isLambda {
		return authenticateFromGateway(logger)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or malformed authorization header")
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.Debug("token validation failed", zap.Error(err))
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
				return
			}

			ctx := auth.WithUserContext(r.Context(), &auth.UserContext{UserID: claims.UserID})
			ctx = common.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticateFromGateway(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				logger.Warn("request reached handler without gateway user header")
				common.RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing user identity")
				return
			}
			ctx := auth.WithUserContext(r.Context(), &auth.UserContext{UserID: userID})
			ctx = common.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit applies per-IP limiting before auth and per-user limiting
// after it.
func RateLimit(ipLimiter, userLimiter *auth.KeyedRateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ipLimiter.Allow(clientIP(r)) {
				common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMIT", "rate limit exceeded")
				return
			}
			if user, err := auth.GetUserFromContext(r.Context()); err == nil {
				if !userLimiter.Allow(user.UserID) {
					common.RespondError(w, http.StatusTooManyRequests, "RATE_LIMIT", "rate limit exceeded")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.Index(forwarded, ","); i >= 0 {
			return strings.TrimSpace(forwarded[:i])
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
