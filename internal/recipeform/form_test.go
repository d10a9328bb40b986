package recipeform

import (
	"net/url"
	"testing"

	"platebook/internal/blogapi"
	"platebook/pkg/domain"
)

func TestDecodeDropsBlankEntries(t *testing.T) {
	values := url.Values{
		"title":       {"Carrot Soup"},
		"ingredients": {"2 carrots", "  ", "", "1l stock"},
		"steps":       {"Chop", "", "Simmer"},
	}
	recipe, err := Decode(values)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recipe.Ingredients) != 2 || recipe.Ingredients[1] != "1l stock" {
		t.Errorf("ingredients = %v", recipe.Ingredients)
	}
	if len(recipe.Steps) != 2 || recipe.Steps[0] != "Chop" || recipe.Steps[1] != "Simmer" {
		t.Errorf("steps = %v", recipe.Steps)
	}
}

func TestDecodeSplitsCommaJoinedTags(t *testing.T) {
	values := url.Values{
		"title": {"Pie"},
		"tags":  {"vegan, quick ,autumn"},
	}
	recipe, err := Decode(values)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"vegan", "quick", "autumn"}
	if len(recipe.Tags) != len(want) {
		t.Fatalf("tags = %v, want %v", recipe.Tags, want)
	}
	for i := range want {
		if recipe.Tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, recipe.Tags[i], want[i])
		}
	}
}

func TestDecodeRequiresTitle(t *testing.T) {
	_, err := Decode(url.Values{"title": {"   "}})
	if !blogapi.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestDecodeRejectsNegativeMinutes(t *testing.T) {
	values := url.Values{"title": {"Pie"}, "prep_time": {"-10"}}
	if _, err := Decode(values); !blogapi.IsValidation(err) {
		t.Errorf("negative prep_time: err = %v, want validation", err)
	}
	values = url.Values{"title": {"Pie"}, "cook_time": {"soon"}}
	if _, err := Decode(values); !blogapi.IsValidation(err) {
		t.Errorf("non-numeric cook_time: err = %v, want validation", err)
	}
}

func TestDecodeDefaultsToDraft(t *testing.T) {
	recipe, err := Decode(url.Values{"title": {"Pie"}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if recipe.Status != domain.RecipeDraft {
		t.Errorf("status = %q, want draft", recipe.Status)
	}
}

func TestValuesRoundTrip(t *testing.T) {
	original := domain.Recipe{
		Title:       "Bread",
		Intro:       "Simple loaf",
		Image:       "bread.jpg",
		PrepTime:    20,
		CookTime:    45,
		Servings:    8,
		Notes:       "Rest overnight",
		Status:      domain.RecipePublished,
		Categories:  []string{"Baking"},
		Tags:        []string{"weekend"},
		Ingredients: []string{"flour", "water", "salt", "yeast"},
		Steps:       []string{"Mix", "Prove", "Bake"},
	}
	decoded, err := Decode(Values(original))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Title != original.Title || decoded.CookTime != original.CookTime || decoded.Status != original.Status {
		t.Errorf("scalar fields changed: %+v", decoded)
	}
	if len(decoded.Ingredients) != 4 || len(decoded.Steps) != 3 {
		t.Errorf("list fields changed: %v / %v", decoded.Ingredients, decoded.Steps)
	}
}
