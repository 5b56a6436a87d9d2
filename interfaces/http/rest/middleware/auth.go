package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"piiquante/pkg/auth"
	"piiquante/pkg/common"
	pkgerrors "piiquante/pkg/errors"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

// AuthConfig configures the authentication middleware
type AuthConfig struct {
	Validator *auth.JWTValidator

	// TrustGateway accepts the subject of an API Gateway JWT or Lambda
	// authorizer without validating the token again
	TrustGateway bool

	IPLimiter   auth.RateLimiter
	UserLimiter auth.RateLimiter

	// RateLimitPerMinute is only used in the 429 message
	RateLimitPerMinute int

	ErrorHandler *pkgerrors.ErrorHandler
	Logger       *zap.Logger
}

// Authenticate resolves the caller id, applies rate limits and stores the
// id in the request context
func Authenticate(cfg AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)
			if !cfg.allow(r, cfg.IPLimiter, clientIP) {
				cfg.ErrorHandler.Handle(w, r, pkgerrors.NewRateLimitError(cfg.RateLimitPerMinute, "minute"))
				return
			}

			userID, err := cfg.resolveUser(r)
			if err != nil {
				cfg.Logger.Debug("Authentication failed",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)
				cfg.ErrorHandler.Handle(w, r, pkgerrors.NewUnauthorizedError(authMessage(err)))
				return
			}

			if !cfg.allow(r, cfg.UserLimiter, userID) {
				cfg.ErrorHandler.Handle(w, r, pkgerrors.NewRateLimitError(cfg.RateLimitPerMinute, "minute"))
				return
			}

			next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
		})
	}
}

func (cfg AuthConfig) resolveUser(r *http.Request) (string, error) {
	if cfg.TrustGateway {
		if userID, ok := gatewaySubject(r); ok {
			return userID, nil
		}
	}

	if cfg.Validator == nil {
		return "", auth.ErrMissingToken
	}

	claims, err := cfg.Validator.ValidateToken(extractToken(r))
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

// allow fails open when the limiter store is unreachable
func (cfg AuthConfig) allow(r *http.Request, limiter auth.RateLimiter, key string) bool {
	if limiter == nil {
		return true
	}
	allowed, err := limiter.Allow(r.Context(), key)
	if err != nil {
		cfg.Logger.Warn("Rate limiter error", zap.Error(err))
	}
	return allowed
}

// gatewaySubject reads the caller id an API Gateway authorizer attached to the request
func gatewaySubject(r *http.Request) (string, bool) {
	proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(r.Context())
	if !ok || proxyCtx.Authorizer == nil {
		return "", false
	}

	if proxyCtx.Authorizer.JWT != nil {
		if sub := proxyCtx.Authorizer.JWT.Claims["sub"]; sub != "" {
			return sub, true
		}
	}
	if sub, ok := proxyCtx.Authorizer.Lambda["sub"].(string); ok && sub != "" {
		return sub, true
	}
	return "", false
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Missing authentication token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

// extractToken reads the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// getClientIP extracts the client IP address. chi's RealIP middleware has
// already folded X-Forwarded-For and X-Real-IP into RemoteAddr.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
