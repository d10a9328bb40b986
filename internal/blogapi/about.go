package blogapi

import (
	"context"
	"net/http"
	"strings"

	"platebook/pkg/domain"
)

// AboutRepository reads and replaces the singleton about page.
type AboutRepository struct {
	c *Client
}

func NewAboutRepository(c *Client) *AboutRepository {
	return &AboutRepository{c: c}
}

func (r *AboutRepository) Get(ctx context.Context, token string) (domain.AboutPage, error) {
	var out domain.AboutPage
	if err := r.c.get(ctx, "/about", token, &out); err != nil {
		return domain.AboutPage{}, err
	}
	return out, nil
}

// Replace saves the whole document. The about page has no partial update.
func (r *AboutRepository) Replace(ctx context.Context, token string, page domain.AboutPage) (domain.AboutPage, error) {
	if strings.TrimSpace(page.Title) == "" {
		return domain.AboutPage{}, NewValidationError("title is required")
	}
	if page.Sections == nil {
		page.Sections = []domain.AboutSection{}
	}
	var out domain.AboutPage
	if err := r.c.send(ctx, http.MethodPut, "/about", token, page, &out); err != nil {
		return domain.AboutPage{}, err
	}
	return out, nil
}
