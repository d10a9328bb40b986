package blogapi

import (
	"context"
	"io"
	"net/http"
	"strings"

	"platebook/pkg/domain"
)

// MediaRepository manages the media library.
type MediaRepository struct {
	c *Client
}

func NewMediaRepository(c *Client) *MediaRepository {
	return &MediaRepository{c: c}
}

func (r *MediaRepository) List(ctx context.Context, token string) ([]domain.Media, error) {
	var out struct {
		Items []domain.Media `json:"items"`
	}
	if err := r.c.get(ctx, "/media", token, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (r *MediaRepository) Upload(ctx context.Context, token, filename string, content io.Reader) (domain.Media, error) {
	if strings.TrimSpace(filename) == "" {
		return domain.Media{}, NewValidationError("filename is required")
	}
	var out domain.Media
	if err := r.c.upload(ctx, "/media", token, "file", filename, content, nil, &out); err != nil {
		return domain.Media{}, err
	}
	return out, nil
}

// Delete removes a media file by filename. The endpoint takes the filename
// in the request body, not the path.
func (r *MediaRepository) Delete(ctx context.Context, token, filename string) error {
	if strings.TrimSpace(filename) == "" {
		return NewValidationError("filename is required")
	}
	payload := map[string]string{"filename": filename}
	return r.c.send(ctx, http.MethodDelete, "/media", token, payload, nil)
}
