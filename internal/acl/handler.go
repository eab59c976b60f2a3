package acl

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mosaic-cms/mosaic-auth/internal/platform/httpx"
)

// Handler exposes read-only role introspection endpoints for debugging.
type Handler struct {
	logger *slog.Logger
	engine *Engine
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{logger: logger, engine: engine}
}

// MountRoutes registers ACL introspection routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.listRoles)
	r.Get("/roles/{ident}", h.showRole)
	r.Get("/check", h.check)
}

type roleSummary struct {
	Ident     string `json:"ident"`
	Parent    string `json:"parent,omitempty"`
	Superuser bool   `json:"is_superuser,omitempty"`
}

type roleDetail struct {
	roleSummary
	Rules []string `json:"rules"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.engine.Registry().Roles()
	out := make([]roleSummary, 0, len(roles))
	for _, role := range roles {
		out = append(out, summarize(role))
	}
	payload := map[string]any{"roles": out}
	if ident, err := h.engine.Registry().DefaultRole(); err == nil {
		payload["default_role"] = ident
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) showRole(w http.ResponseWriter, r *http.Request) {
	ident := chi.URLParam(r, "ident")
	role, ok := h.engine.Registry().Role(ident)
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Unknown Role", "role is not registered")
		return
	}
	rules := role.RuleStrings()
	if rules == nil {
		rules = []string{}
	}
	httpx.JSON(w, http.StatusOK, roleDetail{roleSummary: summarize(role), Rules: rules})
}

// check answers a single access query; role and privilege come from the query
// string. Intended for operators, not for enforcement.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	allowed, err := h.engine.IsAllowed(q.Get("role"), q.Get("resource"), q.Get("privilege"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

func summarize(role *Role) roleSummary {
	s := roleSummary{Ident: role.Ident, Superuser: role.Superuser}
	if role.Parent != nil {
		s.Parent = role.Parent.Ident
	}
	return s
}
