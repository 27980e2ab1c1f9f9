package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mkorchagin/accountsvc/pkg/jwt"
	"github.com/mkorchagin/accountsvc/pkg/logger"
	"github.com/mkorchagin/accountsvc/pkg/validator"
)

// maxMultipartMemory bounds in-memory form parsing; larger file parts spill
// to disk.
const maxMultipartMemory = 10 << 20

// Router exposes the account service over HTTP.
type Router struct {
	svc              *Service
	logger           *slog.Logger
	resetRateLimiter func(http.Handler) http.Handler
	errorDetails     bool
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithRouterLogger sets the logger for request handling failures.
func WithRouterLogger(log *slog.Logger) RouterOption {
	return func(r *Router) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithErrorDetails includes the underlying error message in 500 responses.
// Meant for development environments only.
func WithErrorDetails(enabled bool) RouterOption {
	return func(r *Router) {
		r.errorDetails = enabled
	}
}

// WithResetRateLimiter sets the middleware guarding the password reset
// endpoints.
func WithResetRateLimiter(mw func(http.Handler) http.Handler) RouterOption {
	return func(r *Router) {
		if mw != nil {
			r.resetRateLimiter = mw
		}
	}
}

// NewRouter creates the account HTTP router.
func NewRouter(svc *Service, opts ...RouterOption) *Router {
	r := &Router{
		svc:    svc,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handler builds the route tree. Mount it under the API prefix.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	authMW := jwt.Middleware(rt.svc.Sessions().JWTService(),
		jwt.WithMiddlewareLogger(rt.logger))

	r.Route("/auth", func(auth chi.Router) {
		auth.Post("/register", rt.register)
		auth.Post("/login", rt.login)

		auth.Group(func(protected chi.Router) {
			protected.Use(authMW)
			protected.Get("/profile", rt.profile)
			protected.Put("/profile", rt.updateProfile)
			protected.Delete("/profile/image", rt.deleteProfileImage)
		})
	})

	r.Route("/password", func(pw chi.Router) {
		if rt.resetRateLimiter != nil {
			pw.Use(rt.resetRateLimiter)
		}
		pw.Post("/forgot", rt.forgotPassword)
		pw.Post("/reset", rt.resetPassword)
	})

	return r
}

func (rt *Router) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	image, err := decodeForm(r, func(form formReader) {
		req.Username = form.value("username")
		req.Email = form.value("email")
		req.Password = form.value("password")
		req.Preferences = form.values("preferences")
	}, &req)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}

	result, err := rt.svc.Register(r.Context(), req, image)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}

	rt.respondJSON(w, http.StatusCreated, authResponse(result))
}

func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.respondError(w, r, err)
		return
	}

	result, err := rt.svc.Login(r.Context(), req)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}

	rt.respondJSON(w, http.StatusOK, authResponse(result))
}

func (rt *Router) profile(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDFromContext(r)
	if !ok {
		rt.respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	acct, err := rt.svc.Profile(r.Context(), id)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}

	rt.respondJSON(w, http.StatusOK, map[string]any{"user": acct.PublicProfile()})
}

func (rt *Router) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDFromContext(r)
	if !ok {
		rt.respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	image, err := decodeForm(r, func(form formReader) {
		if v, present := form.lookup("username"); present {
			req.Username = &v
		}
		if v, present := form.lookup("email"); present {
			req.Email = &v
		}
		if vs, present := form.lookupValues("preferences"); present {
			req.Preferences = &vs
		}
		req.CurrentPassword = form.value("currentPassword")
		req.NewPassword = form.value("newPassword")
	}, &req)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}

	acct, err := rt.svc.UpdateProfile(r.Context(), id, req, image)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}

	rt.respondJSON(w, http.StatusOK, map[string]any{"user": acct.PublicProfile()})
}

func (rt *Router) deleteProfileImage(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDFromContext(r)
	if !ok {
		rt.respondMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	acct, err := rt.svc.DeleteProfileImage(r.Context(), id)
	if err != nil {
		rt.respondError(w, r, err)
		return
	}

	rt.respondJSON(w, http.StatusOK, map[string]any{"user": acct.PublicProfile()})
}

func (rt *Router) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.respondError(w, r, err)
		return
	}

	if err := rt.svc.InitiateReset(r.Context(), req); err != nil {
		rt.respondError(w, r, err)
		return
	}

	// Same acknowledgment whether or not the email is registered.
	rt.respondMessage(w, http.StatusOK, "If that email is registered, a reset link has been sent.")
}

func (rt *Router) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.respondError(w, r, err)
		return
	}

	if _, err := rt.svc.CompleteReset(r.Context(), req); err != nil {
		rt.respondError(w, r, err)
		return
	}

	rt.respondMessage(w, http.StatusOK, "Password has been reset.")
}

func authResponse(result *AuthResult) map[string]any {
	return map[string]any{
		"token": result.Token,
		"user":  result.Account.PublicProfile(),
	}
}

func accountIDFromContext(r *http.Request) (uuid.UUID, bool) {
	subject, ok := jwt.SubjectFromContext(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

var errMalformedBody = errors.New("malformed request body")

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

// formReader gives handlers uniform access to multipart form fields.
type formReader struct {
	form *multipart.Form
}

func (f formReader) value(name string) string {
	if vs := f.form.Value[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (f formReader) lookup(name string) (string, bool) {
	vs, ok := f.form.Value[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// values flattens repeated fields and comma-separated lists into one slice.
func (f formReader) values(name string) []string {
	var out []string
	for _, v := range f.form.Value[name] {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func (f formReader) lookupValues(name string) ([]string, bool) {
	if _, ok := f.form.Value[name]; !ok {
		return nil, false
	}
	return f.values(name), true
}

// decodeForm parses the request as multipart form data with an optional
// "image" file part, falling back to a JSON body when the content type is
// not multipart.
func decodeForm(r *http.Request, bindForm func(formReader), jsonDst any) (*multipart.FileHeader, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return nil, decodeJSON(r, jsonDst)
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, errMalformedBody
	}

	bindForm(formReader{form: r.MultipartForm})

	if files := r.MultipartForm.File["image"]; len(files) > 0 {
		return files[0], nil
	}
	return nil, nil
}

func (rt *Router) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		rt.logger.Error("failed to encode response", logger.Error(err))
	}
}

func (rt *Router) respondMessage(w http.ResponseWriter, status int, message string) {
	rt.respondJSON(w, status, map[string]string{"message": message})
}

// respondError maps domain errors to HTTP responses. Internal failures are
// logged with detail but answered with a generic message.
func (rt *Router) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case validator.IsValidationError(err):
		ve := validator.ExtractValidationErrors(err)
		rt.respondJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  validationPayload(ve),
		})
	case errors.Is(err, errMalformedBody):
		rt.respondMessage(w, http.StatusBadRequest, "Malformed request body")
	case errors.Is(err, ErrDuplicateIdentity):
		rt.respondMessage(w, http.StatusBadRequest, "Email or username already taken")
	case errors.Is(err, ErrWrongPassword):
		rt.respondMessage(w, http.StatusBadRequest, "Current password is incorrect")
	case errors.Is(err, ErrInvalidCredentials):
		rt.respondMessage(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, ErrNotFound):
		rt.respondMessage(w, http.StatusNotFound, "Account not found")
	// Expired and invalid tokens answer identically so the response does not
	// reveal whether a presented token ever existed.
	case errors.Is(err, ErrResetTokenInvalid), errors.Is(err, ErrResetTokenExpired):
		rt.respondMessage(w, http.StatusBadRequest, "Invalid or expired reset token")
	case errors.Is(err, ErrNotAnImage):
		rt.respondMessage(w, http.StatusBadRequest, "Uploaded file must be an image")
	case errors.Is(err, ErrImageTooLarge):
		rt.respondMessage(w, http.StatusBadRequest, "Image exceeds the maximum allowed size")
	default:
		rt.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
		payload := map[string]string{"message": "Internal server error"}
		if rt.errorDetails {
			payload["error"] = err.Error()
		}
		rt.respondJSON(w, http.StatusInternalServerError, payload)
	}
}

func validationPayload(ve validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(ve))
	for _, field := range ve.Fields() {
		out[field] = ve.Get(field)
	}
	return out
}
