package middleware

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"piiquante/pkg/auth"
	"piiquante/pkg/common"
	pkgerrors "piiquante/pkg/errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "middleware-test-secret"

// echoUser answers with the caller id the middleware stored
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.GetUserID(r.Context())
	common.RespondMessage(w, http.StatusOK, userID)
})

type stubLimiter struct {
	allowed bool
	err     error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.allowed, s.err }
func (s stubLimiter) Reset(context.Context, string) error         { return nil }

func authConfig(t *testing.T) AuthConfig {
	t.Helper()
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: testSecret, Issuer: "piiquante"})
	require.NoError(t, err)
	return AuthConfig{
		Validator:          validator,
		RateLimitPerMinute: 100,
		ErrorHandler:       pkgerrors.NewErrorHandler(zap.NewNop()),
		Logger:             zap.NewNop(),
	}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	generator, err := auth.NewJWTGenerator(testSecret, "piiquante", nil, time.Hour)
	require.NoError(t, err)
	token, err := generator.GenerateToken(userID, userID+"@example.com")
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name       string
		header     func(t *testing.T) string
		status     int
		wantUserID string
	}{
		{name: "valid token", header: func(t *testing.T) string { return bearer(t, "u1") }, status: http.StatusOK, wantUserID: "u1"},
		{name: "missing token", header: func(*testing.T) string { return "" }, status: http.StatusUnauthorized},
		{name: "garbage token", header: func(*testing.T) string { return "Bearer not.a.jwt" }, status: http.StatusUnauthorized},
		{name: "wrong scheme", header: func(t *testing.T) string { return "Basic dTE6cGFzcw==" }, status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Authenticate(authConfig(t))(echoUser)
			req := httptest.NewRequest(http.MethodGet, "/api/sauces", nil)
			if h := tt.header(t); h != "" {
				req.Header.Set("Authorization", h)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.wantUserID != "" {
				assert.Contains(t, rec.Body.String(), tt.wantUserID)
			}
		})
	}
}

func TestAuthenticate_RateLimits(t *testing.T) {
	cfg := authConfig(t)
	cfg.IPLimiter = stubLimiter{allowed: false}
	handler := Authenticate(cfg)(echoUser)

	req := httptest.NewRequest(http.MethodGet, "/api/sauces", nil)
	req.Header.Set("Authorization", bearer(t, "u1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAuthenticate_LimiterErrorFailsOpen(t *testing.T) {
	cfg := authConfig(t)
	cfg.UserLimiter = stubLimiter{allowed: true, err: errors.New("table unavailable")}
	handler := Authenticate(cfg)(echoUser)

	req := httptest.NewRequest(http.MethodGet, "/api/sauces", nil)
	req.Header.Set("Authorization", bearer(t, "u1"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_TrustsGatewayAuthorizer(t *testing.T) {
	cfg := authConfig(t)
	cfg.Validator = nil
	cfg.TrustGateway = true
	handler := Authenticate(cfg)(echoUser)

	accessor := core.RequestAccessorV2{}
	req, err := accessor.EventToRequestWithContext(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: "/api/sauces",
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: http.MethodGet,
				Path:   "/api/sauces",
			},
			Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
					Claims: map[string]string{"sub": "gateway-user"},
				},
			},
		},
	})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway-user")

	// Without an authorizer context and without a validator nobody gets in
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sauces", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBaseURL(t *testing.T) {
	var seen string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.GetBaseURL(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/sauces", nil)
	BaseURL("")(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "http://api.example.com", seen)

	req = httptest.NewRequest(http.MethodGet, "http://api.example.com/api/sauces", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	BaseURL("")(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "https://api.example.com", seen)

	req = httptest.NewRequest(http.MethodGet, "http://api.example.com/api/sauces", nil)
	req.TLS = &tls.ConnectionState{}
	BaseURL("https://cdn.example.com")(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "https://cdn.example.com", seen)
}

type httpObservation struct {
	method, route string
	status        int
}

type observerFunc func(method, route string, status int, duration time.Duration)

func (f observerFunc) ObserveHTTP(method, route string, status int, duration time.Duration) {
	f(method, route, status, duration)
}

func TestLogger_ObservesRoutePattern(t *testing.T) {
	var got []httpObservation
	observer := observerFunc(func(method, route string, status int, _ time.Duration) {
		got = append(got, httpObservation{method, route, status})
	})

	r := chi.NewRouter()
	r.Use(Logger(zap.NewNop(), observer))
	r.Get("/api/sauces/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sauces/abc", nil))

	require.Len(t, got, 1)
	assert.Equal(t, httpObservation{http.MethodGet, "/api/sauces/{id}", http.StatusNoContent}, got[0])
}

func TestCircuitBreaker_OpensAfterServerErrors(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("sauces")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5

	calls := 0
	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	handler := CircuitBreaker(cfg, pkgerrors.NewErrorHandler(zap.NewNop()), zap.NewNop())(failing)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sauces", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sauces", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 3, calls, "open breaker does not call the handler")
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("sauces")
	cfg.MinRequests = 2

	rejecting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	handler := CircuitBreaker(cfg, pkgerrors.NewErrorHandler(zap.NewNop()), zap.NewNop())(rejecting)

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sauces", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}
