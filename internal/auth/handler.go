package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mosaic-cms/mosaic-auth/internal/platform/httpx"
	"github.com/mosaic-cms/mosaic-auth/internal/token"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	tokens       *token.Service
	gate         *Gate
	jwt          *JWTHandler
	cookieName   string
	secureCookie bool
	validator    *validator.Validate
}

// NewHandler constructs a Handler instance. The JWT handler is optional;
// when absent, login responses omit the bearer token.
func NewHandler(logger *slog.Logger, service *Service, tokens *token.Service, gate *Gate, jwtHandler *JWTHandler, cookieName string, secureCookie bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		tokens:       tokens,
		gate:         gate,
		jwt:          jwtHandler,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		validator:    validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	SubjectID   string    `json:"subject_id"`
	Roles       []string  `json:"roles"`
	ExpiresAt   time.Time `json:"expires_at"`
	BearerToken string    `json:"bearer_token,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "request body must be JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Login Failed", "invalid email or password")
		return
	}

	tok, err := h.tokens.Generate(user.ID)
	if err != nil {
		h.logger.Error("generate auth token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	// The credential pair must be read before Persist destroys the secret.
	cred, ok := tok.Credential()
	if !ok {
		h.logger.Error("generated token has no credential")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if err := h.tokens.Persist(r.Context(), tok); err != nil {
		h.logger.Error("persist auth token", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "try again later")
		return
	}

	h.setCredentialCookie(w, cred, tok.Expiry)

	resp := loginResponse{SubjectID: user.ID, Roles: user.RoleIdents(), ExpiresAt: tok.Expiry}
	if h.jwt != nil {
		bearer, err := h.jwt.GenerateForSubject(user.ID)
		if err != nil {
			h.logger.Warn("issue bearer token", slog.Any("error", err))
		} else {
			resp.BearerToken = bearer
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, err := h.gate.Authenticate(r)
	if err != nil {
		if errors.Is(err, token.ErrStorageUnavailable) {
			httpx.Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "try again later")
			return
		}
		h.logger.Error("logout authenticate", slog.Any("error", err))
	}
	if user != nil {
		if err := h.tokens.Revoke(r.Context(), user.ID); err != nil {
			h.logger.Warn("revoke tokens on logout", slog.String("subject_id", user.ID), slog.Any("error", err))
		}
	}
	h.clearCredentialCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.gate.Authenticate(r)
	if err != nil {
		if errors.Is(err, token.ErrStorageUnavailable) {
			httpx.Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "try again later")
			return
		}
		h.logger.Error("resolve session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "no valid session")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"subject_id": user.ID,
		"email":      user.Email,
		"roles":      user.RoleIdents(),
	})
}

// setCredentialCookie writes the credential pair. The value is URL-encoded
// because the ";" separator is not a legal cookie-value byte.
func (h *Handler) setCredentialCookie(w http.ResponseWriter, cred token.Credential, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    url.QueryEscape(cred.String()),
		Path:     "/",
		Expires:  expiry,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearCredentialCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
