package server

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"platebook/internal/blogapi"
	"platebook/internal/recipeform"
	"platebook/internal/session"
	"platebook/internal/util"
	"platebook/pkg/domain"
)

func (s *Server) handleRecipes(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	switch r.Method {
	case http.MethodGet:
		s.listRecipes(w, r, sess)
	case http.MethodPost:
		s.createRecipe(w, r, sid, sess)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRecipeByID(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	rest := strings.TrimPrefix(r.URL.Path, "/panel/api/recipes/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.getRecipe(w, r, sess, id)
		case http.MethodPut:
			s.updateRecipe(w, r, sid, sess, id)
		case http.MethodDelete:
			s.deleteRecipe(w, r, sid, sess, id)
		default:
			methodNotAllowed(w)
		}
	case "categories":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		s.updateRecipeCategories(w, r, sid, sess, id)
	case "form":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.getRecipeForm(w, r, sess, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request, sess session.Session) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	result, err := s.recipes.List(r.Context(), sess.Token, page, r.URL.Query().Get("status"))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request, sess session.Session, id string) {
	recipe, err := s.recipes.Get(r.Context(), sess.Token, id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// getRecipeForm returns the recipe flattened into form fields, the shape
// the edit screen prefills from.
func (s *Server) getRecipeForm(w http.ResponseWriter, r *http.Request, sess session.Session, id string) {
	recipe, err := s.recipes.Get(r.Context(), sess.Token, id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     recipe.ID,
		"fields": recipeform.Values(recipe),
	})
}

func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request, sid string, sess session.Session) {
	values, image, err := s.parseRecipeForm(w, r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	recipe, err := recipeform.Decode(values)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	st := s.viewFor(sid, sess.Token)
	created, submitted, err := s.submitRecipe(r.Context(), st, sess.Token, recipe, "", image)
	if !submitted {
		writeError(w, http.StatusConflict, "a submission is already in progress")
		return
	}
	if err != nil {
		st.notifier.Error("Save failed", err.Error())
		writeAPIError(w, err)
		return
	}
	st.notifier.Success("Recipe saved", created.Title)
	s.record(r, sess.User.Username, "recipe.create", "recipe", created.ID, map[string]any{"title": created.Title})
	s.mirrorImage(r.Context(), image)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request, sid string, sess session.Session, id string) {
	values, image, err := s.parseRecipeForm(w, r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	recipe, err := recipeform.Decode(values)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	st := s.viewFor(sid, sess.Token)
	updated, submitted, err := s.submitRecipe(r.Context(), st, sess.Token, recipe, id, image)
	if !submitted {
		writeError(w, http.StatusConflict, "a submission is already in progress")
		return
	}
	if err != nil {
		st.notifier.Error("Save failed", err.Error())
		writeAPIError(w, err)
		return
	}
	st.notifier.Success("Recipe saved", updated.Title)
	s.record(r, sess.User.Username, "recipe.update", "recipe", updated.ID, map[string]any{"title": updated.Title})
	s.mirrorImage(r.Context(), image)
	writeJSON(w, http.StatusOK, updated)
}

// submitRecipe runs a create or update through the per-session form state
// machine so a double-click cannot produce two backend writes.
func (s *Server) submitRecipe(ctx context.Context, st *panelView, token string, recipe domain.Recipe, id string, image *blogapi.ImageUpload) (domain.Recipe, bool, error) {
	st.form.Populate(recipe)
	if !st.form.BeginSubmit() {
		return domain.Recipe{}, false, nil
	}
	var (
		result domain.Recipe
		err    error
	)
	if id == "" {
		result, err = s.recipes.Create(ctx, token, recipe, image)
	} else {
		result, err = s.recipes.Update(ctx, token, id, recipe, image)
	}
	st.form.EndSubmit(err == nil)
	return result, true, err
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request, sid string, sess session.Session, id string) {
	if err := s.recipes.Delete(r.Context(), sess.Token, id); err != nil {
		writeAPIError(w, err)
		return
	}
	st := s.viewFor(sid, sess.Token)
	st.notifier.Success("Recipe deleted", id)
	s.record(r, sess.User.Username, "recipe.delete", "recipe", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateRecipeCategories(w http.ResponseWriter, r *http.Request, sid string, sess session.Session, id string) {
	var req struct {
		Categories []string `json:"categories"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := s.recipes.UpdateCategories(r.Context(), sess.Token, id, req.Categories)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	st := s.viewFor(sid, sess.Token)
	st.notifier.Success("Categories updated", updated.Title)
	s.record(r, sess.User.Username, "recipe.categories", "recipe", updated.ID, map[string]any{"categories": updated.Categories})
	writeJSON(w, http.StatusOK, updated)
}

// parseRecipeForm accepts the recipe editor submission as multipart (with
// an optional image file) or urlencoded form data.
func (s *Server) parseRecipeForm(w http.ResponseWriter, r *http.Request) (url.Values, *blogapi.ImageUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, nil, blogapi.NewValidationError("could not parse form data")
		}
		return r.PostForm, nil, nil
	}
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		return nil, nil, blogapi.NewValidationError("form data too large or malformed")
	}
	values := url.Values(r.MultipartForm.Value)
	file, header, err := r.FormFile("image_file")
	if err == http.ErrMissingFile {
		return values, nil, nil
	}
	if err != nil {
		return nil, nil, blogapi.NewValidationError("could not read image file")
	}
	defer file.Close()
	if !s.isExtensionAllowed(header.Filename) {
		return nil, nil, blogapi.NewValidationError("image file type not allowed")
	}
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, blogapi.NewValidationError("could not read image file")
	}
	return values, &blogapi.ImageUpload{
		Filename: filepath.Base(header.Filename),
		Content:  bytes.NewReader(content),
	}, nil
}

// archiveLinkExpiry bounds how long a presigned archive link stays valid.
const archiveLinkExpiry = 15 * time.Minute

// archiveKey maps an uploaded filename to its object key in the archive
// bucket. Delete and presign must derive the same key as the mirror write.
func archiveKey(filename string) string {
	return "uploads/" + filename
}

// mirrorImage copies an uploaded image into the archive bucket. The
// reader must support re-reading from the start.
func (s *Server) mirrorImage(ctx context.Context, image *blogapi.ImageUpload) {
	if s.archive == nil || image == nil {
		return
	}
	seeker, ok := image.Content.(io.ReadSeeker)
	if !ok {
		return
	}
	logger := util.LoggerFromContext(ctx)
	go func() {
		mirrorCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			logger.Warn("archive mirror skipped", "filename", image.Filename, "err", err)
			return
		}
		size, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			logger.Warn("archive mirror skipped", "filename", image.Filename, "err", err)
			return
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			logger.Warn("archive mirror skipped", "filename", image.Filename, "err", err)
			return
		}
		contentType := mime.TypeByExtension(filepath.Ext(image.Filename))
		key := archiveKey(image.Filename)
		if err := s.archive.Put(mirrorCtx, key, seeker, size, contentType); err != nil {
			logger.Warn("archive mirror failed", "filename", image.Filename, "err", err)
			return
		}
		logger.Info("archived uploaded image", "key", key, "bytes", size)
	}()
}
