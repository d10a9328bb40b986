package blogapi

import (
	"context"
	"net/http"
	"strings"

	"platebook/pkg/domain"
)

// AuthClient performs login against the backend. Tokens are issued and
// invalidated upstream; this client never stores credentials.
type AuthClient struct {
	c *Client
}

func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c}
}

// Login exchanges credentials for a bearer token and user profile.
// Empty credentials fail client-side without issuing a network call.
func (a *AuthClient) Login(ctx context.Context, username, password string) (string, domain.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", domain.User{}, NewValidationError("username and password are required")
	}
	payload := map[string]string{"username": username, "password": password}
	var out struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := a.c.send(ctx, http.MethodPost, "/auth/login", "", payload, &out); err != nil {
		return "", domain.User{}, err
	}
	if out.Token == "" {
		return "", domain.User{}, &Error{Kind: KindAuth, Message: "login response missing token"}
	}
	return out.Token, out.User, nil
}
