package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/auth"
	"github.com/Shahid-khan015/FarmTrack/internal/models"
	log "github.com/sirupsen/logrus"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	UserContextKey contextKey = "user"
)

// WriteDetail writes a {"detail": msg} error body with the given status.
func WriteDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": msg}); err != nil {
		log.WithError(err).Debug("Failed to write error body")
	}
}

// AuthMiddleware provides bearer token authentication middleware
type AuthMiddleware struct {
	authService *auth.Service
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authService *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates bearer tokens on API routes and adds the claims to
// the request context. A missing token is 401; a bad or expired one is 403.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipAuth(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.authService.ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if errors.Is(err, auth.ErrMissingToken) {
			WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if err != nil {
			WriteDetail(w, http.StatusForbidden, "Invalid authentication credentials")
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "Token expired"
			}
			WriteDetail(w, http.StatusForbidden, msg)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request only if the user holds one of roles.
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserFromContext(r.Context())
			if !ok {
				WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			if !claims.Role.HasRole(roles...) {
				WriteDetail(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(ctx context.Context) (*models.Claims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.Claims)
	return claims, ok
}

// shouldSkipAuth reports whether path is public: everything outside /api
// (health and the frontend) plus login and registration.
func shouldSkipAuth(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return true
	}
	switch path {
	case "/api/auth/login", "/api/auth/register":
		return true
	}
	return false
}

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	requests  map[string][]int64 // IP -> timestamps
	lastSweep int64
	mu        sync.Mutex
	now       func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]int64),
		now:      time.Now,
	}
}

// RateLimit allows at most maxRequests per client IP within windowSeconds.
// A non-positive maxRequests disables the limit.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, windowSeconds int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxRequests <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			clientIP := getClientIP(r)

			now := m.now().Unix()
			windowStart := now - int64(windowSeconds)

			m.mu.Lock()

			if now-m.lastSweep >= int64(windowSeconds) {
				m.sweep(windowStart)
				m.lastSweep = now
			} else {
				m.prune(clientIP, windowStart)
			}

			if len(m.requests[clientIP]) >= maxRequests {
				m.mu.Unlock()
				log.WithField("client_ip", clientIP).Warn("Rate limit exceeded")
				WriteDetail(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			m.requests[clientIP] = append(m.requests[clientIP], now)
			m.mu.Unlock()

			next.ServeHTTP(w, r)
		})
	}
}

// prune drops the client's timestamps at or before windowStart and forgets
// the client once none remain.
func (m *RateLimitMiddleware) prune(clientIP string, windowStart int64) {
	timestamps, exists := m.requests[clientIP]
	if !exists {
		return
	}
	var valid []int64
	for _, ts := range timestamps {
		if ts > windowStart {
			valid = append(valid, ts)
		}
	}
	if len(valid) == 0 {
		delete(m.requests, clientIP)
		return
	}
	m.requests[clientIP] = valid
}

// sweep prunes every tracked client.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for ip := range m.requests {
		m.prune(ip, windowStart)
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check for forwarded headers first
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	// Fall back to remote address
	ip := r.RemoteAddr
	if colonIndex := strings.LastIndex(ip, ":"); colonIndex != -1 {
		ip = ip[:colonIndex]
	}
	return ip
}
