package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/houhousishu/houhou/internal/catalog"
	"github.com/houhousishu/houhou/internal/companion"
)

const maxRequestBodySize = 1 << 20 // 1MB

// SiteDeps holds the collaborators of the site API.
type SiteDeps struct {
	Catalog   *catalog.Facade
	Content   *catalog.Content
	Companion *companion.Companion // optional; if nil, /api/chat answers 503
	RemoteURL string
	Logger    *slog.Logger // optional; slog.Default() when nil
}

// serviceView is a service as the site renders it, with its icon resolved.
type serviceView struct {
	catalog.Service
	Icon string `json:"icon"`
}

func viewServices(in []catalog.Service) []serviceView {
	out := make([]serviceView, len(in))
	for i, s := range in {
		out[i] = serviceView{Service: s, Icon: catalog.IconGlyph(s.IconType)}
	}
	return out
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User    *catalog.User `json:"user"`
	Backend string        `json:"backend"`
}

type chatRequest struct {
	Message string           `json:"message"`
	History []companion.Turn `json:"history"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type statusResponse struct {
	Backend       string     `json:"backend"`
	RemoteBaseURL string     `json:"remote_base_url"`
	LastRefreshed *time.Time `json:"last_refreshed,omitempty"`
	ChatEnabled   bool       `json:"chat_enabled"`
}

// NewSiteHandler returns the JSON API the site's pages call.
func NewSiteHandler(deps SiteDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", handleStatus(deps))

		r.Get("/services", handleListServices(deps))
		r.Get("/resources", handleListResources(deps))
		r.With(RequireSession(deps.Catalog.Auth, deps.Logger)).Post("/services", handleAddService(deps))
		r.With(RequireSession(deps.Catalog.Auth, deps.Logger)).Post("/resources", handleAddResource(deps))

		r.Post("/login", handleLogin(deps))
		r.Get("/session", handleSession(deps))
		r.Post("/logout", handleLogout(deps))

		r.Post("/chat", handleChat(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func handleStatus(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{
			Backend:       deps.Catalog.Backend(),
			RemoteBaseURL: deps.RemoteURL,
			ChatEnabled:   deps.Companion != nil && deps.Companion.Enabled(),
		}
		if deps.Content != nil {
			if t := deps.Content.LastRefreshed(); !t.IsZero() {
				resp.LastRefreshed = &t
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListServices(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := deps.Catalog.Services.List(r.Context())
		if err != nil {
			writeError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, viewServices(services))
	}
}

func handleListResources(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resources, err := deps.Catalog.Resources.List(r.Context())
		if err != nil {
			writeError(w, deps.Logger, err)
			return
		}
		if category := r.URL.Query().Get("category"); category != "" && category != "all" {
			filtered := resources[:0]
			for _, res := range resources {
				if string(res.Category) == category {
					filtered = append(filtered, res)
				}
			}
			resources = filtered
		}
		writeJSON(w, http.StatusOK, resources)
	}
}

func handleAddService(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s catalog.Service
		if !decodeBody(w, r, &s) {
			return
		}
		created, err := deps.Content.AddService(r.Context(), s)
		if err != nil && created.ID == "" {
			writeError(w, deps.Logger, err)
			return
		}
		if err != nil {
			deps.Logger.Warn("service created but content refresh failed", "id", created.ID, "error", err)
		}
		writeJSON(w, http.StatusCreated, viewServices([]catalog.Service{created})[0])
	}
}

func handleAddResource(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res catalog.Resource
		if !decodeBody(w, r, &res) {
			return
		}
		created, err := deps.Content.AddResource(r.Context(), res)
		if err != nil && created.ID == "" {
			writeError(w, deps.Logger, err)
			return
		}
		if err != nil {
			deps.Logger.Warn("resource created but content refresh failed", "id", created.ID, "error", err)
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleLogin(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "email and password are required")
			return
		}
		s, err := deps.Catalog.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, deps.Logger, err)
			return
		}
		u := s.User()
		writeJSON(w, http.StatusOK, sessionResponse{User: &u, Backend: deps.Catalog.Backend()})
	}
}

func handleSession(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Catalog.Auth.Session(r.Context())
		if err != nil {
			writeError(w, deps.Logger, err)
			return
		}
		resp := sessionResponse{Backend: deps.Catalog.Backend()}
		if s != nil {
			u := s.User()
			resp.User = &u
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleLogout(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Catalog.Auth.Logout(r.Context()); err != nil {
			writeError(w, deps.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleChat(deps SiteDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "message is required")
			return
		}
		if deps.Companion == nil {
			writeError(w, deps.Logger, companion.ErrUnavailable)
			return
		}
		reply, err := deps.Companion.Reply(r.Context(), req.History, req.Message)
		if err != nil {
			writeError(w, deps.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}
