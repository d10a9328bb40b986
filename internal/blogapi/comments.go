package blogapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"platebook/internal/recipeid"
	"platebook/pkg/domain"
)

// CommentRepository moderates visitor comments.
type CommentRepository struct {
	c *Client
}

func NewCommentRepository(c *Client) *CommentRepository {
	return &CommentRepository{c: c}
}

// List fetches comments, optionally scoped to a recipe and a moderation
// status. statusFilter "all" (or empty) omits the filter.
func (r *CommentRepository) List(ctx context.Context, token, recipeID, statusFilter string, page int) (domain.CommentPage, error) {
	q := url.Values{}
	if recipeID = strings.TrimSpace(recipeID); recipeID != "" {
		q.Set("recipe_id", recipeid.Normalize(recipeID))
	}
	statusFilter = strings.TrimSpace(statusFilter)
	if statusFilter != "" && statusFilter != StatusFilterAll {
		q.Set("status", statusFilter)
	}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	path := "/comments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out domain.CommentPage
	if err := r.c.get(ctx, path, token, &out); err != nil {
		return domain.CommentPage{}, err
	}
	return out, nil
}

func (r *CommentRepository) Get(ctx context.Context, token, id string) (domain.Comment, error) {
	if id = strings.TrimSpace(id); id == "" {
		return domain.Comment{}, NewValidationError("comment id is required")
	}
	var out domain.Comment
	if err := r.c.get(ctx, "/comments/"+url.PathEscape(id), token, &out); err != nil {
		return domain.Comment{}, err
	}
	return out, nil
}

// SetStatus moves a comment through moderation (pending/approved/rejected).
func (r *CommentRepository) SetStatus(ctx context.Context, token, id string, status domain.CommentStatus) (domain.Comment, error) {
	if id = strings.TrimSpace(id); id == "" {
		return domain.Comment{}, NewValidationError("comment id is required")
	}
	switch status {
	case domain.CommentPending, domain.CommentApproved, domain.CommentRejected:
	default:
		return domain.Comment{}, NewValidationError("status must be pending, approved or rejected")
	}
	payload := map[string]domain.CommentStatus{"status": status}
	var out domain.Comment
	if err := r.c.send(ctx, http.MethodPut, "/comments/"+url.PathEscape(id), token, payload, &out); err != nil {
		return domain.Comment{}, err
	}
	return out, nil
}

func (r *CommentRepository) Delete(ctx context.Context, token, id string) error {
	if id = strings.TrimSpace(id); id == "" {
		return NewValidationError("comment id is required")
	}
	return r.c.send(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), token, nil, nil)
}
