package jwt

import (
	"log/slog"
	"net/http"
	"strings"
)

// TokenExtractor extracts a raw token string from the request. An empty
// string means no token was presented.
type TokenExtractor func(r *http.Request) string

// BearerTokenExtractor reads the token from the Authorization header using
// the Bearer scheme.
func BearerTokenExtractor() TokenExtractor {
	return func(r *http.Request) string {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			return ""
		}
		scheme, token, found := strings.Cut(auth, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
}

// MiddlewareOption configures the auth middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	extractor TokenExtractor
	logger    *slog.Logger
}

// WithTokenExtractor overrides the default Bearer header extractor.
func WithTokenExtractor(extractor TokenExtractor) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if extractor != nil {
			cfg.extractor = extractor
		}
	}
}

// WithMiddlewareLogger sets the logger used to record rejected requests.
func WithMiddlewareLogger(log *slog.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if log != nil {
			cfg.logger = log
		}
	}
}

// Middleware authenticates requests using the service's signing key and
// injects the token subject and claims into the request context. Every
// rejection produces the same 401 response regardless of cause; the cause
// is recorded in logs only.
func Middleware(svc *Service, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		extractor: BearerTokenExtractor(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cfg.extractor(r)
			if token == "" {
				cfg.logger.InfoContext(r.Context(), "request rejected",
					slog.String("reason", "missing"),
					slog.String("path", r.URL.Path))
				unauthorized(w)
				return
			}

			var claims StandardClaims
			if err := svc.Parse(token, &claims); err != nil {
				cfg.logger.InfoContext(r.Context(), "request rejected",
					slog.String("reason", Reason(err)),
					slog.String("path", r.URL.Path))
				unauthorized(w)
				return
			}

			ctx := SetSubject(r.Context(), claims.Subject)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"message":"Authentication required"}`))
}
