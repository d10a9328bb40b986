package recipeform

import (
	"sync"

	"platebook/pkg/domain"
)

// State tracks the add/edit form lifecycle:
// Empty -> Populated -> Submitting -> {Succeeded, back to Populated}.
type State int

const (
	StateEmpty State = iota
	StatePopulated
	StateSubmitting
	StateSucceeded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Step is a numbered step row as shown in the form.
type Step struct {
	Number int
	Text   string
}

// Form is the live view model of one open add/edit page. Row mutations and
// the submit guard are serialized so a double-click cannot start two
// overlapping submissions.
type Form struct {
	mu     sync.Mutex
	state  State
	recipe domain.Recipe
}

// New returns an empty form, as when the add page is opened.
func New() *Form {
	return &Form{state: StateEmpty}
}

// Populate loads a record into the form. Ignored while a submission is in
// flight.
func (f *Form) Populate(recipe domain.Recipe) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateSubmitting {
		return
	}
	f.recipe = recipe
	f.state = StatePopulated
}

// Snapshot returns a copy of the current record and state.
func (f *Form) Snapshot() (domain.Recipe, State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneRecipe(f.recipe), f.state
}

// BeginSubmit flips the form into Submitting. It returns false when the
// form is empty or a submission is already outstanding, making duplicate
// submissions a no-op.
func (f *Form) BeginSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StatePopulated {
		return false
	}
	f.state = StateSubmitting
	return true
}

// EndSubmit records the submission outcome. Failures return the form to
// Populated so the admin can retry with their input intact.
func (f *Form) EndSubmit(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateSubmitting {
		return
	}
	if ok {
		f.state = StateSucceeded
		return
	}
	f.state = StatePopulated
}

func (f *Form) AddIngredient(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipe.Ingredients = append(f.recipe.Ingredients, text)
	f.touch()
}

// RemoveIngredient drops the row at index i (0-based). Reports whether a
// row was removed.
func (f *Form) RemoveIngredient(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := false
	f.recipe.Ingredients, removed = removeAt(f.recipe.Ingredients, i)
	if removed {
		f.touch()
	}
	return removed
}

func (f *Form) AddStep(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipe.Steps = append(f.recipe.Steps, text)
	f.touch()
}

func (f *Form) RemoveStep(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := false
	f.recipe.Steps, removed = removeAt(f.recipe.Steps, i)
	if removed {
		f.touch()
	}
	return removed
}

func (f *Form) AddTag(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipe.Tags = append(f.recipe.Tags, text)
	f.touch()
}

func (f *Form) RemoveTag(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := false
	f.recipe.Tags, removed = removeAt(f.recipe.Tags, i)
	if removed {
		f.touch()
	}
	return removed
}

// NumberedSteps returns the step rows numbered 1..n with no gaps, as the
// detail page displays them. Numbering is derived from position, so any
// removal renumbers the remaining rows contiguously.
func (f *Form) NumberedSteps() []Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	steps := make([]Step, len(f.recipe.Steps))
	for i, text := range f.recipe.Steps {
		steps[i] = Step{Number: i + 1, Text: text}
	}
	return steps
}

// touch promotes an Empty form to Populated once the admin starts typing.
func (f *Form) touch() {
	if f.state == StateEmpty {
		f.state = StatePopulated
	}
}

func removeAt(list []string, i int) ([]string, bool) {
	if i < 0 || i >= len(list) {
		return list, false
	}
	return append(list[:i], list[i+1:]...), true
}

func cloneRecipe(r domain.Recipe) domain.Recipe {
	r.Categories = append([]string(nil), r.Categories...)
	r.Tags = append([]string(nil), r.Tags...)
	r.Ingredients = append([]string(nil), r.Ingredients...)
	r.Steps = append([]string(nil), r.Steps...)
	return r
}
