package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"platebook/internal/blogapi"
	"platebook/internal/session"
	"platebook/internal/util"
	"platebook/internal/view"
	"platebook/pkg/domain"
)

// comments

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request, _ string, sess session.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	query := r.URL.Query()
	page := 1
	if raw := query.Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	result, err := s.comments.List(r.Context(), sess.Token, query.Get("recipe_id"), query.Get("status"), page)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommentByID(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	id := strings.TrimPrefix(r.URL.Path, "/panel/api/comments/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		comment, err := s.comments.Get(r.Context(), sess.Token, id)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	case http.MethodPut:
		var req struct {
			Status string `json:"status"`
		}
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		comment, err := s.comments.SetStatus(r.Context(), sess.Token, id, domain.CommentStatus(req.Status))
		if err != nil {
			writeAPIError(w, err)
			return
		}
		st := s.viewFor(sid, sess.Token)
		st.notifier.Success("Comment "+req.Status, "by "+comment.Author)
		s.record(r, sess.User.Username, "comment.moderate", "comment", id, map[string]any{"status": req.Status})
		writeJSON(w, http.StatusOK, comment)
	case http.MethodDelete:
		if err := s.comments.Delete(r.Context(), sess.Token, id); err != nil {
			writeAPIError(w, err)
			return
		}
		st := s.viewFor(sid, sess.Token)
		st.notifier.Success("Comment deleted", id)
		s.record(r, sess.User.Username, "comment.delete", "comment", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// media

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.media.List(r.Context(), sess.Token)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": s.mediaListing(r.Context(), items), "count": len(items)})
	case http.MethodPost:
		s.uploadMedia(w, r, sid, sess)
	case http.MethodDelete:
		var req struct {
			Filename string `json:"filename"`
		}
		if err := decodeJSONBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.media.Delete(r.Context(), sess.Token, req.Filename); err != nil {
			writeAPIError(w, err)
			return
		}
		if s.archive != nil {
			// The archive copy follows the system of record; a failed
			// cleanup is logged, never surfaced.
			if err := s.archive.Delete(r.Context(), archiveKey(req.Filename)); err != nil {
				util.LoggerFromContext(r.Context()).Warn("archive copy delete failed", "filename", req.Filename, "err", err)
			}
		}
		st := s.viewFor(sid, sess.Token)
		st.notifier.Success("File deleted", req.Filename)
		s.record(r, sess.User.Username, "media.delete", "media", req.Filename, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	if !s.isExtensionAllowed(header.Filename) {
		writeError(w, http.StatusBadRequest, "file type not allowed")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	filename := filepath.Base(header.Filename)
	uploaded, err := s.media.Upload(r.Context(), sess.Token, filename, bytes.NewReader(content))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	st := s.viewFor(sid, sess.Token)
	st.notifier.Success("File uploaded", uploaded.Filename)
	s.record(r, sess.User.Username, "media.upload", "media", uploaded.Filename, map[string]any{"size": header.Size})
	s.mirrorImage(r.Context(), &blogapi.ImageUpload{Filename: filename, Content: bytes.NewReader(content)})
	writeJSON(w, http.StatusCreated, uploaded)
}

// mediaItem augments a media record with a presigned link to its archived
// copy when the archive mirror is enabled.
type mediaItem struct {
	domain.Media
	ArchiveURL string `json:"archive_url,omitempty"`
}

func (s *Server) mediaListing(ctx context.Context, items []domain.Media) []mediaItem {
	out := make([]mediaItem, 0, len(items))
	for _, m := range items {
		item := mediaItem{Media: m}
		if s.archive != nil {
			link, err := s.archive.PresignGet(ctx, archiveKey(m.Filename), archiveLinkExpiry)
			if err != nil {
				util.LoggerFromContext(ctx).Warn("archive link failed", "filename", m.Filename, "err", err)
			} else {
				item.ArchiveURL = link
			}
		}
		out = append(out, item)
	}
	return out
}

// about

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.about.Get(r.Context(), sess.Token)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPut:
		var page domain.AboutPage
		if err := decodeJSONBody(r, &page); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		updated, err := s.about.Replace(r.Context(), sess.Token, page)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		st := s.viewFor(sid, sess.Token)
		st.notifier.Success("About page saved", updated.Title)
		s.record(r, sess.User.Username, "about.update", "about", "", nil)
		writeJSON(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w)
	}
}

// dashboard

// loadDashboard derives counters from the list endpoints; the backend has
// no dedicated stats route.
func (s *Server) loadDashboard(ctx context.Context, token string) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	published, err := s.recipes.List(ctx, token, 1, string(domain.RecipePublished))
	if err != nil {
		return stats, err
	}
	drafts, err := s.recipes.List(ctx, token, 1, string(domain.RecipeDraft))
	if err != nil {
		return stats, err
	}
	pending, err := s.comments.List(ctx, token, "", string(domain.CommentPending), 1)
	if err != nil {
		return stats, err
	}
	stats.PublishedRecipes = published.Total
	stats.DraftRecipes = drafts.Total
	stats.PendingComments = pending.Total
	return stats, nil
}

// newRouter registers the panel pages for one session. Loaders close over
// the session's backend token; a new login gets a fresh router.
func (s *Server) newRouter(token string) *view.Router {
	rt := view.NewRouter(nil)
	rt.Handle("dashboard", func(ctx context.Context, _ view.Params) (any, error) {
		return s.loadDashboard(ctx, token)
	})
	rt.Handle("recipes", func(ctx context.Context, p view.Params) (any, error) {
		page := 1
		if n, err := strconv.Atoi(p["page"]); err == nil && n > 0 {
			page = n
		}
		return s.recipes.List(ctx, token, page, p["status"])
	})
	rt.Handle("recipe", func(ctx context.Context, p view.Params) (any, error) {
		return s.recipes.Get(ctx, token, p["id"])
	})
	rt.Handle("comments", func(ctx context.Context, p view.Params) (any, error) {
		page := 1
		if n, err := strconv.Atoi(p["page"]); err == nil && n > 0 {
			page = n
		}
		return s.comments.List(ctx, token, p["recipe_id"], p["status"], page)
	})
	rt.Handle("media", func(ctx context.Context, _ view.Params) (any, error) {
		return s.media.List(ctx, token)
	})
	rt.Handle("about", func(ctx context.Context, _ view.Params) (any, error) {
		return s.about.Get(ctx, token)
	})
	return rt
}

func decodeJSONBody(r *http.Request, out any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(out)
}
