package blogapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"platebook/internal/recipeid"
	"platebook/pkg/domain"
)

// StatusFilterAll lists every recipe regardless of status.
const StatusFilterAll = "all"

// ImageUpload is a pending image attachment for a recipe submission.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// RecipeRepository exposes recipe CRUD over the shared client.
type RecipeRepository struct {
	c *Client
}

// NewRecipeRepository wraps the shared backend client.
func NewRecipeRepository(c *Client) *RecipeRepository {
	return &RecipeRepository{c: c}
}

// List fetches one listing page. statusFilter "all" (or empty) omits the
// status query parameter.
func (r *RecipeRepository) List(ctx context.Context, token string, page int, statusFilter string) (domain.RecipePage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	statusFilter = strings.TrimSpace(statusFilter)
	if statusFilter != "" && statusFilter != StatusFilterAll {
		q.Set("status", statusFilter)
	}
	path := "/recipes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out domain.RecipePage
	if err := r.c.get(ctx, path, token, &out); err != nil {
		return domain.RecipePage{}, err
	}
	return out, nil
}

// Get fetches a single recipe. The ID is normalized first so suffixed legacy
// IDs hit the one canonical endpoint. A backend 404 surfaces as KindNotFound.
func (r *RecipeRepository) Get(ctx context.Context, token, id string) (domain.Recipe, error) {
	id = recipeid.Normalize(strings.TrimSpace(id))
	if id == "" {
		return domain.Recipe{}, NewValidationError("recipe id is required")
	}
	var out domain.Recipe
	if err := r.c.get(ctx, "/recipes/"+url.PathEscape(id), token, &out); err != nil {
		return domain.Recipe{}, err
	}
	return out, nil
}

// Create submits a new recipe. When an image is attached it is uploaded
// first and the returned filename is referenced by the recipe payload, so
// the two requests form one all-or-nothing operation.
func (r *RecipeRepository) Create(ctx context.Context, token string, recipe domain.Recipe, image *ImageUpload) (domain.Recipe, error) {
	if err := validateRecipe(recipe); err != nil {
		return domain.Recipe{}, err
	}
	if image != nil {
		filename, err := r.c.UploadRecipeImage(ctx, token, image.Filename, image.Content)
		if err != nil {
			return domain.Recipe{}, err
		}
		recipe.Image = filename
	}
	var out domain.Recipe
	if err := r.c.send(ctx, http.MethodPost, "/recipes", token, newRecipePayload(recipe), &out); err != nil {
		return domain.Recipe{}, err
	}
	return out, nil
}

// Update replaces an existing recipe, using the same two-phase image flow
// as Create. Categories travel in the same request body.
func (r *RecipeRepository) Update(ctx context.Context, token, id string, recipe domain.Recipe, image *ImageUpload) (domain.Recipe, error) {
	id = recipeid.Normalize(strings.TrimSpace(id))
	if id == "" {
		return domain.Recipe{}, NewValidationError("recipe id is required")
	}
	if err := validateRecipe(recipe); err != nil {
		return domain.Recipe{}, err
	}
	if image != nil {
		filename, err := r.c.UploadRecipeImage(ctx, token, image.Filename, image.Content)
		if err != nil {
			return domain.Recipe{}, err
		}
		recipe.Image = filename
	}
	var out domain.Recipe
	if err := r.c.send(ctx, http.MethodPut, "/recipes/"+url.PathEscape(id), token, newRecipePayload(recipe), &out); err != nil {
		return domain.Recipe{}, err
	}
	return out, nil
}

// Delete removes a recipe. Deleting an already-deleted ID reports
// KindNotFound rather than failing loudly.
func (r *RecipeRepository) Delete(ctx context.Context, token, id string) error {
	id = recipeid.Normalize(strings.TrimSpace(id))
	if id == "" {
		return NewValidationError("recipe id is required")
	}
	return r.c.send(ctx, http.MethodDelete, "/recipes/"+url.PathEscape(id), token, nil, nil)
}

// UpdateCategories is the intentional category-only edit, not an error
// recovery path. Categories are deduplicated and sent once as a JSON array.
func (r *RecipeRepository) UpdateCategories(ctx context.Context, token, id string, categories []string) (domain.Recipe, error) {
	id = recipeid.Normalize(strings.TrimSpace(id))
	if id == "" {
		return domain.Recipe{}, NewValidationError("recipe id is required")
	}
	payload := map[string][]string{"categories": dedupeCategories(categories)}
	var out domain.Recipe
	if err := r.c.send(ctx, http.MethodPost, "/recipes/"+url.PathEscape(id)+"/categories", token, payload, &out); err != nil {
		return domain.Recipe{}, err
	}
	return out, nil
}

func validateRecipe(recipe domain.Recipe) error {
	if strings.TrimSpace(recipe.Title) == "" {
		return NewValidationError("title is required")
	}
	if recipe.PrepTime < 0 || recipe.CookTime < 0 || recipe.Servings < 0 {
		return NewValidationError("times and servings must not be negative")
	}
	switch recipe.Status {
	case "", domain.RecipeDraft, domain.RecipePublished:
	default:
		return NewValidationError("status must be draft or published")
	}
	return nil
}

// recipePayload is the wire form of a recipe submission. All list fields
// marshal as JSON arrays, present exactly once.
type recipePayload struct {
	Title       string              `json:"title"`
	Intro       string              `json:"intro"`
	Image       string              `json:"image,omitempty"`
	PrepTime    int                 `json:"prep_time"`
	CookTime    int                 `json:"cook_time"`
	Servings    int                 `json:"servings"`
	Notes       string              `json:"notes"`
	Status      domain.RecipeStatus `json:"status"`
	Categories  []string            `json:"categories"`
	Tags        []string            `json:"tags"`
	Ingredients []string            `json:"ingredients"`
	Steps       []string            `json:"steps"`
}

func newRecipePayload(recipe domain.Recipe) recipePayload {
	status := recipe.Status
	if status == "" {
		status = domain.RecipeDraft
	}
	return recipePayload{
		Title:       strings.TrimSpace(recipe.Title),
		Intro:       recipe.Intro,
		Image:       recipe.Image,
		PrepTime:    recipe.PrepTime,
		CookTime:    recipe.CookTime,
		Servings:    recipe.Servings,
		Notes:       recipe.Notes,
		Status:      status,
		Categories:  dedupeCategories(recipe.Categories),
		Tags:        cleanList(recipe.Tags),
		Ingredients: cleanList(recipe.Ingredients),
		Steps:       cleanList(recipe.Steps),
	}
}

// cleanList trims entries and drops blanks, preserving order.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// dedupeCategories treats categories as a set while keeping first-seen order
// so the backend receives each value exactly once.
func dedupeCategories(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
