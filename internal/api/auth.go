package api

import (
	"context"
	"net/http"
)

// Login asks the backend to verify the credentials and returns the token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out LoginResult
	_, err := c.call(ctx, "login", http.MethodPost, "/api/auth/login", nil, creds, &out)
	return out, err
}

// CurrentUser returns the account bound to the session token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	return get[User](ctx, c, "get user", "/api/auth/user", nil)
}

// ChangePassword returns the backend's confirmation message.
func (c *Client) ChangePassword(ctx context.Context, ch PasswordChange) (string, error) {
	return c.call(ctx, "change password", http.MethodPut, "/api/auth/password", nil, ch, nil)
}

// ChangeUsername returns the new username and the token bound to it.
func (c *Client) ChangeUsername(ctx context.Context, ch UsernameChange) (LoginResult, error) {
	var out LoginResult
	_, err := c.call(ctx, "change username", http.MethodPut, "/api/auth/username", nil, ch, &out)
	return out, err
}
