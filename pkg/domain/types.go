package domain

import "time"

type RecipeStatus string

const (
	RecipeDraft     RecipeStatus = "draft"
	RecipePublished RecipeStatus = "published"
)

type CommentStatus string

const (
	CommentPending  CommentStatus = "pending"
	CommentApproved CommentStatus = "approved"
	CommentRejected CommentStatus = "rejected"
)

// Recipe is the full recipe record as exchanged with the blog backend.
// The backend is the system of record; this is the transient client copy.
type Recipe struct {
	ID          string       `json:"id,omitempty"`
	Title       string       `json:"title"`
	Intro       string       `json:"intro,omitempty"`
	Image       string       `json:"image,omitempty"`
	PrepTime    int          `json:"prep_time,omitempty"`
	CookTime    int          `json:"cook_time,omitempty"`
	Servings    int          `json:"servings,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Status      RecipeStatus `json:"status,omitempty"`
	Categories  []string     `json:"categories"`
	Tags        []string     `json:"tags"`
	Ingredients []string     `json:"ingredients"`
	Steps       []string     `json:"steps"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// RecipeSummary is the listing-page projection of a recipe.
type RecipeSummary struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Image      string       `json:"image,omitempty"`
	Status     RecipeStatus `json:"status"`
	Categories []string     `json:"categories"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// RecipePage is one page of a recipe listing.
type RecipePage struct {
	Items      []RecipeSummary `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	Total      int             `json:"total"`
}

type Comment struct {
	ID        string        `json:"id"`
	RecipeID  string        `json:"recipe_id"`
	Author    string        `json:"author"`
	Email     string        `json:"email,omitempty"`
	Content   string        `json:"content"`
	Status    CommentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

type CommentPage struct {
	Items      []Comment `json:"items"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	Total      int       `json:"total"`
}

type Media struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url,omitempty"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// AboutSection is one titled block of the about page.
type AboutSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// AboutPage is a singleton document, replaced wholesale on save.
type AboutPage struct {
	Title        string            `json:"title"`
	Subtitle     string            `json:"subtitle,omitempty"`
	Image        string            `json:"image,omitempty"`
	Sections     []AboutSection    `json:"sections"`
	ContactEmail string            `json:"contact_email,omitempty"`
	SocialLinks  map[string]string `json:"social_links,omitempty"`
}

// User is the admin user profile returned by the auth endpoint.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// DashboardStats aggregates the numbers shown on the admin dashboard.
type DashboardStats struct {
	PublishedRecipes int `json:"published_recipes"`
	DraftRecipes     int `json:"draft_recipes"`
	PendingComments  int `json:"pending_comments"`
}
