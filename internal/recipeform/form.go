// Package recipeform maps the add/edit recipe form to a plain recipe record
// and back. It owns no network logic: the repositories submit, this package
// only translates and guards against duplicate submissions.
package recipeform

import (
	"net/url"
	"strconv"
	"strings"

	"platebook/internal/blogapi"
	"platebook/pkg/domain"
)

// Decode builds a recipe record from posted form values. Blank ingredient
// and step entries are dropped; categories keep first-seen order with
// duplicates removed; numeric fields must be non-negative integers.
func Decode(values url.Values) (domain.Recipe, error) {
	recipe := domain.Recipe{
		Title:       strings.TrimSpace(values.Get("title")),
		Intro:       strings.TrimSpace(values.Get("intro")),
		Image:       strings.TrimSpace(values.Get("image")),
		Notes:       strings.TrimSpace(values.Get("notes")),
		Status:      domain.RecipeStatus(strings.TrimSpace(values.Get("status"))),
		Categories:  collect(values["categories"]),
		Tags:        collect(values["tags"]),
		Ingredients: collect(values["ingredients"]),
		Steps:       collect(values["steps"]),
	}
	if recipe.Title == "" {
		return domain.Recipe{}, blogapi.NewValidationError("title is required")
	}
	if recipe.Status == "" {
		recipe.Status = domain.RecipeDraft
	}
	var err error
	if recipe.PrepTime, err = parseMinutes("prep_time", values.Get("prep_time")); err != nil {
		return domain.Recipe{}, err
	}
	if recipe.CookTime, err = parseMinutes("cook_time", values.Get("cook_time")); err != nil {
		return domain.Recipe{}, err
	}
	if recipe.Servings, err = parseMinutes("servings", values.Get("servings")); err != nil {
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Values renders a recipe record back into form values for prefilling the
// edit form. Inverse of Decode for every field the form owns.
func Values(recipe domain.Recipe) url.Values {
	values := url.Values{}
	values.Set("title", recipe.Title)
	values.Set("intro", recipe.Intro)
	values.Set("image", recipe.Image)
	values.Set("notes", recipe.Notes)
	values.Set("status", string(recipe.Status))
	values.Set("prep_time", strconv.Itoa(recipe.PrepTime))
	values.Set("cook_time", strconv.Itoa(recipe.CookTime))
	values.Set("servings", strconv.Itoa(recipe.Servings))
	for _, v := range recipe.Categories {
		values.Add("categories", v)
	}
	for _, v := range recipe.Tags {
		values.Add("tags", v)
	}
	for _, v := range recipe.Ingredients {
		values.Add("ingredients", v)
	}
	for _, v := range recipe.Steps {
		values.Add("steps", v)
	}
	return values
}

// collect trims entries and drops blanks. A single comma-separated value is
// split, matching how the legacy tag input posted.
func collect(raw []string) []string {
	if len(raw) == 1 && strings.Contains(raw[0], ",") {
		raw = strings.Split(raw[0], ",")
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func parseMinutes(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, blogapi.NewValidationError(field + " must be a non-negative number")
	}
	return n, nil
}
