package github

import (
	"context"
	"fmt"
	"net/http"

	"github.com/justapithecus/contribuart/types"
)

// Identity resolves the token's user. When the profile has no public
// email, the primary verified address is used; if that is unavailable
// the commit signature falls back to the noreply address.
func (c *Client) Identity(ctx context.Context) (types.Identity, error) {
	var user struct {
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return types.Identity{}, fmt.Errorf("get authenticated user: %w", err)
	}

	id := types.Identity{Login: user.Login, Name: user.Name, Email: user.Email, Token: c.token}
	if id.Email == "" {
		id.Email = c.primaryEmail(ctx)
	}
	return id, nil
}

// primaryEmail requires the user:email scope; failures are ignored.
func (c *Client) primaryEmail(ctx context.Context) string {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/emails", nil, &emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}
