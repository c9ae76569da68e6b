package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/auth"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["detail"]
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	middleware := NewAuthMiddleware(authService)

	run := func(method, path, authHeader string) (*httptest.ResponseRecorder, bool) {
		req := httptest.NewRequest(method, path, nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})
		middleware.Authenticate(handler).ServeHTTP(w, req)
		return w, handlerCalled
	}

	t.Run("valid token", func(t *testing.T) {
		user := &models.User{ID: "u1", Username: "testuser", FullName: "Test User", Role: models.RoleOwner}
		token, _ := authService.GenerateToken(user)

		req := httptest.NewRequest("GET", "/api/tractors", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetUserFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, user.ID, claims.UserID)
			assert.Equal(t, user.Role, claims.Role)
			assert.Equal(t, user.FullName, claims.FullName)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing authorization header is 401", func(t *testing.T) {
		w, called := run("GET", "/api/tractors", "")
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Not authenticated", detail(t, w))
	})

	t.Run("invalid token is 403", func(t *testing.T) {
		w, called := run("GET", "/api/tractors", "Bearer invalid-token")
		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("malformed header is 403", func(t *testing.T) {
		w, called := run("GET", "/api/tractors", "Token abc")
		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("expired token is 403", func(t *testing.T) {
		expired := auth.NewService("test-secret", time.Nanosecond)
		token, _ := expired.GenerateToken(&models.User{ID: "u1", Username: "testuser", Role: models.RoleOwner})
		time.Sleep(1100 * time.Millisecond)

		w, called := run("GET", "/api/tractors", "Bearer "+token)
		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "Token expired", detail(t, w))
	})

	t.Run("public paths skip auth", func(t *testing.T) {
		for _, path := range []string{"/api/auth/login", "/api/auth/register", "/health", "/", "/dashboard"} {
			_, called := run("POST", path, "")
			assert.True(t, called, path)
		}
		_, called := run("GET", "/api/auth/me", "")
		assert.False(t, called)
	})
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	middleware := NewAuthMiddleware(auth.NewService("", 0))
	guarded := middleware.RequireRole(models.RoleOwner, models.RoleOperator)

	serve := func(claims *models.Claims) (*httptest.ResponseRecorder, bool) {
		req := httptest.NewRequest("POST", "/api/tractors", nil)
		if claims != nil {
			req = req.WithContext(context.WithValue(req.Context(), UserContextKey, claims))
		}
		w := httptest.NewRecorder()
		called := false
		guarded(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })).ServeHTTP(w, req)
		return w, called
	}

	w, called := serve(&models.Claims{UserID: "u1", Role: models.RoleOperator})
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)

	w, called = serve(&models.Claims{UserID: "u2", Role: models.RoleFarmer})
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions", detail(t, w))

	w, called = serve(nil)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	middleware := NewRateLimitMiddleware()

	t.Run("rate limit not exceeded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.RateLimit(5, 60)(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		rateLimitHandler := middleware.RateLimit(1, 60)(handler)

		// First request should succeed
		rateLimitHandler.ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)

		// Second request should be rate limited
		w = httptest.NewRecorder()
		handlerCalled = false
		rateLimitHandler.ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("window expiry admits again", func(t *testing.T) {
		limiter := NewRateLimitMiddleware()
		now := time.Unix(1_700_000_000, 0)
		limiter.now = func() time.Time { return now }
		handler := limiter.RateLimit(1, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1"

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		now = now.Add(61 * time.Second)
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitMiddleware_ForgetsIdleClients(t *testing.T) {
	limiter := NewRateLimitMiddleware()
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	handler := limiter.RateLimit(5, 60)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	hit := func(addr string) {
		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	hit("10.0.0.1:1")
	now = now.Add(30 * time.Second)
	hit("10.0.0.2:1")
	assert.Len(t, limiter.requests, 2)

	now = now.Add(31 * time.Second)
	hit("10.0.0.3:1")
	assert.NotContains(t, limiter.requests, "10.0.0.1")
	assert.Contains(t, limiter.requests, "10.0.0.2")
	assert.Contains(t, limiter.requests, "10.0.0.3")

	now = now.Add(2 * time.Minute)
	hit("10.0.0.3:1")
	assert.Len(t, limiter.requests, 1)
}

func TestGetUserFromContext(t *testing.T) {
	claims := &models.Claims{
		UserID:   "test-id",
		Username: "testuser",
		Role:     models.RoleOwner,
	}

	ctx := context.WithValue(context.Background(), UserContextKey, claims)

	retrievedClaims, ok := GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims.UserID, retrievedClaims.UserID)
	assert.Equal(t, claims.Role, retrievedClaims.Role)

	// Test with no user in context
	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
}
