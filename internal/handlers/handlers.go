package handlers

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/findmymua/fmm-backend/internal/apperrors"
	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/findmymua/fmm-backend/internal/http/response"
	"github.com/findmymua/fmm-backend/internal/repository"
	"github.com/findmymua/fmm-backend/internal/service"
	"github.com/findmymua/fmm-backend/pkg/auth"
	"github.com/findmymua/fmm-backend/pkg/config"
	"github.com/findmymua/fmm-backend/pkg/logger"
)

const sessionCookieName = "token"

type ctxKey string

const ctxAccount ctxKey = "account"

type Handlers struct {
	accountService service.AccountService
	orderService   service.OrderService
	accountRepo    repository.AccountRepository
	rateLimitRepo  repository.RateLimitRepository
	config         *config.Config
}

func New(
	accountService service.AccountService,
	orderService service.OrderService,
	accountRepo repository.AccountRepository,
	rateLimitRepo repository.RateLimitRepository,
	config *config.Config,
) *Handlers {
	return &Handlers{
		accountService: accountService,
		orderService:   orderService,
		accountRepo:    accountRepo,
		rateLimitRepo:  rateLimitRepo,
		config:         config,
	}
}

// RequireAuth authenticates the request from the session cookie (or a Bearer
// header), loads the account and attaches it to the request context. A valid
// token whose account no longer exists is rejected, not waved through.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionTokenFrom(r)
		if token == "" {
			response.Error(w, r, apperrors.Unauthenticated("Please Login to access this resource"))
			return
		}

		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			response.Error(w, r, apperrors.Unauthenticated("Please Login to access this resource"))
			return
		}

		account, err := h.accountRepo.FindByID(r.Context(), claims.Sub)
		if err != nil {
			response.Error(w, r, apperrors.Dependency("Internal server error", err))
			return
		}
		if account == nil {
			response.Error(w, r, apperrors.Unauthenticated("Please Login to access this resource"))
			return
		}

		ctx := context.WithValue(r.Context(), ctxAccount, account)
		ctx = context.WithValue(ctx, logger.AccountIDKey, account.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRoles is the role gate. It must be mounted after RequireAuth.
func (h *Handlers) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := AccountFrom(r)
			if account == nil || !allowed[account.Role] {
				role := "undefined"
				if account != nil {
					role = account.Role
				}
				response.Error(w, r, apperrors.Forbidden("Role: "+role+" is not allowed to access this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthRateLimit limits credential endpoints per client IP. Fails open when
// the limiter store is unreachable.
func (h *Handlers) AuthRateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "auth:" + getClientIP(r)

			allowed, err := h.rateLimitRepo.CheckRateLimit(r.Context(), key, requests, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.ErrorBody{
					Success: false,
					Message: "Too many requests. Please try again later.",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AccountFrom returns the account attached by RequireAuth, or nil.
func AccountFrom(r *http.Request) *domain.Account {
	if account, ok := r.Context().Value(ctxAccount).(*domain.Account); ok {
		return account
	}
	return nil
}

// Helper functions
func sessionTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimPrefix(authz, "Bearer ")
	}
	return ""
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.config.Auth.SessionTTL),
		HttpOnly: true,
		Secure:   h.config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
