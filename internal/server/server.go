// Package server exposes the admin panel HTTP surface. It is the only
// place that turns repository errors into user-visible responses, and it
// composes every dependency explicitly at startup: one definition per
// operation, no load-order games.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"platebook/internal/archive"
	"platebook/internal/audit"
	"platebook/internal/blogapi"
	"platebook/internal/ratelimit"
	"platebook/internal/recipeform"
	"platebook/internal/session"
	"platebook/internal/util"
	"platebook/internal/view"
	"platebook/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Auth     *blogapi.AuthClient
	Recipes  *blogapi.RecipeRepository
	Comments *blogapi.CommentRepository
	Media    *blogapi.MediaRepository
	About    *blogapi.AboutRepository
	Sessions session.Store
	Audit    audit.Recorder
	Archive  archive.Store // optional media archive mirror
	// LoginLimiter throttles login attempts; nil disables throttling.
	LoginLimiter           *ratelimit.FixedWindowLimiter
	MaxUploadBytes         int64
	AllowedImageExtensions []string
	NotificationTTL        time.Duration
}

// Server handles panel requests.
type Server struct {
	auth              *blogapi.AuthClient
	recipes           *blogapi.RecipeRepository
	comments          *blogapi.CommentRepository
	media             *blogapi.MediaRepository
	about             *blogapi.AboutRepository
	sessions          session.Store
	audit             audit.Recorder
	archive           archive.Store
	loginLimiter      *ratelimit.FixedWindowLimiter
	mux               *http.ServeMux
	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
	notificationTTL   time.Duration

	mu    sync.Mutex
	views map[string]*panelView
}

// panelView is the per-session navigation and form state. It lives in
// process memory; losing it on restart only forgets an open toast or an
// unsubmitted form, never the session itself.
type panelView struct {
	router   *view.Router
	notifier *view.Notifier
	form     *recipeform.Form
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Auth == nil || cfg.Recipes == nil || cfg.Comments == nil || cfg.Media == nil || cfg.About == nil {
		return nil, errors.New("server requires all backend repositories")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("server requires a session store")
	}
	recorder := cfg.Audit
	if recorder == nil {
		recorder = audit.NewMemoryRecorder()
	}
	s := &Server{
		auth:              cfg.Auth,
		recipes:           cfg.Recipes,
		comments:          cfg.Comments,
		media:             cfg.Media,
		about:             cfg.About,
		sessions:          cfg.Sessions,
		audit:             recorder,
		archive:           cfg.Archive,
		loginLimiter:      cfg.LoginLimiter,
		mux:               http.NewServeMux(),
		maxUploadBytes:    normalizeMaxBytes(cfg.MaxUploadBytes),
		allowedExtensions: normalizeExtensions(cfg.AllowedImageExtensions),
		notificationTTL:   cfg.NotificationTTL,
		views:             make(map[string]*panelView),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the shared middleware.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/panel/api/auth/login", s.handleLogin)
	s.mux.Handle("/panel/api/auth/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("/panel/api/auth/session", s.authenticated(s.handleSession))

	s.mux.Handle("/panel/api/pages/", s.authenticated(s.handlePage))
	s.mux.Handle("/panel/api/notifications", s.authenticated(s.handleNotifications))

	s.mux.Handle("/panel/api/recipes", s.authenticated(s.handleRecipes))
	s.mux.Handle("/panel/api/recipes/", s.authenticated(s.handleRecipeByID))

	s.mux.Handle("/panel/api/comments", s.authenticated(s.handleComments))
	s.mux.Handle("/panel/api/comments/", s.authenticated(s.handleCommentByID))

	s.mux.Handle("/panel/api/media", s.authenticated(s.handleMedia))

	s.mux.Handle("/panel/api/about", s.authenticated(s.handleAbout))

	s.mux.Handle("/panel/api/audit", s.authenticated(s.handleAudit))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// panelHandler handles a request bound to an authenticated session.
type panelHandler func(http.ResponseWriter, *http.Request, string, session.Session)

func (s *Server) authenticated(next panelHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid, ok := bearerToken(r)
		if !ok {
			s.auditLog(r, "panel.authorize", "fail", "reason", "missing_session")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		sess, found, err := s.sessions.Get(r.Context(), sid)
		if err != nil {
			s.auditLog(r, "panel.authorize", "fail", "reason", "session_store_error")
			writeError(w, http.StatusInternalServerError, "session store unavailable")
			return
		}
		if !found {
			s.auditLog(r, "panel.authorize", "fail", "reason", "unknown_session")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if session.TokenExpired(sess.Token, time.Now()) {
			// Expired backend tokens require a fresh login, not a silent
			// degraded mode.
			_ = s.sessions.Delete(r.Context(), sid)
			s.dropView(sid)
			s.auditLog(r, "panel.authorize", "fail", "reason", "token_expired", "user", sess.User.Username)
			writeError(w, http.StatusUnauthorized, "session expired, please log in again")
			return
		}
		next(w, r, sid, sess)
	})
}

// auth handlers

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string      `json:"session_id"`
	User      domain.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.loginLimiter != nil {
		key := "login|" + util.ClientIP(r)
		if !s.loginLimiter.Allow(r.Context(), key) {
			s.auditLog(r, "panel.login", "rate_limited")
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
			return
		}
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.auditLog(r, "panel.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, user, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.auditLog(r, "panel.login", "fail", "reason", err.Error())
		writeAPIError(w, err)
		return
	}
	sid := session.NewID()
	if err := s.sessions.Save(r.Context(), sid, session.Session{Token: token, User: user}); err != nil {
		s.auditLog(r, "panel.login", "fail", "reason", "session_store_error")
		writeError(w, http.StatusInternalServerError, "could not persist session")
		return
	}
	s.auditLog(r, "panel.login", "success", "user", user.Username)
	s.record(r, user.Username, "login", "session", sid, nil)
	writeJSON(w, http.StatusOK, loginResponse{SessionID: sid, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.sessions.Delete(r.Context(), sid); err != nil {
		writeError(w, http.StatusInternalServerError, "could not clear session")
		return
	}
	s.dropView(sid)
	s.auditLog(r, "panel.logout", "success", "user", sess.User.Username)
	s.record(r, sess.User.Username, "logout", "session", sid, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, _ string, sess session.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": sess.User})
}

// page navigation

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page := strings.TrimPrefix(r.URL.Path, "/panel/api/pages/")
	if page == "" || strings.Contains(page, "/") {
		http.NotFound(w, r)
		return
	}
	params := view.Params{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	st := s.viewFor(sid, sess.Token)
	data, err := st.router.Show(r.Context(), page, params)
	if errors.Is(err, view.ErrStale) {
		// A newer navigation won; this result must not paint.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if errors.Is(err, view.ErrUnknownPage) {
		writeError(w, http.StatusNotFound, "unknown page")
		return
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page, "data": data})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	st := s.viewFor(sid, sess.Token)
	if current, ok := st.notifier.Current(); ok {
		writeJSON(w, http.StatusOK, current)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request, _ string, _ session.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.audit.Recent(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit log unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries, "count": len(entries)})
}

// view state management

func (s *Server) viewFor(sid, token string) *panelView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.views[sid]; ok {
		return st
	}
	st := &panelView{
		router:   s.newRouter(token),
		notifier: view.NewNotifier(s.notificationTTL),
		form:     recipeform.New(),
	}
	s.views[sid] = st
	return st
}

func (s *Server) dropView(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, sid)
}

// helpers

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAPIError maps the client error taxonomy onto panel responses.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *blogapi.Error
	if !errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, "blog backend unavailable")
		return
	}
	switch apiErr.Kind {
	case blogapi.KindValidation:
		writeError(w, http.StatusBadRequest, apiErr.Error())
	case blogapi.KindAuth:
		writeError(w, http.StatusUnauthorized, apiErr.Error())
	case blogapi.KindNotFound:
		writeError(w, http.StatusNotFound, apiErr.Error())
	case blogapi.KindTimeout:
		writeError(w, http.StatusGatewayTimeout, apiErr.Error())
	case blogapi.KindNetwork:
		writeError(w, http.StatusBadGateway, apiErr.Error())
	default:
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		writeError(w, status, apiErr.Error())
	}
}

func (s *Server) auditLog(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

// record persists an audit trail entry; failures are logged, never fatal.
func (s *Server) record(r *http.Request, actor, action, entity, entityID string, detail map[string]any) {
	entry := audit.Entry{
		Actor:    actor,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
		At:       time.Now().UTC(),
	}
	if err := s.audit.Record(r.Context(), entry); err != nil {
		util.LoggerFromContext(r.Context()).Warn("audit record failed", "action", action, "err", err)
	}
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 20 * 1024 * 1024
	}
	return value
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func (s *Server) isExtensionAllowed(filename string) bool {
	if len(s.allowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := s.allowedExtensions[ext]
	return ok
}
