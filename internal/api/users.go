package api

import (
	"context"
	"net/http"

	"kuttalk/internal/models"
)

// Me returns the current identity, or ErrUnauthorized when the session is
// missing or expired.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and returns the session token. The service also sets
// the session cookie, which the jar retains for subsequent calls.
func (c *Client) Login(ctx context.Context, userid, password string) (string, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{UserID: userid, Password: password}
	if err := c.do(ctx, http.MethodPost, "/users/login", req, &resp); err != nil {
		return "", err
	}
	return resp.SID, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, userid, nickname, password string) error {
	req := models.SignupRequest{UserID: userid, Nickname: nickname, Password: password}
	return c.do(ctx, http.MethodPost, "/users", req, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/users/logout", nil, nil)
}
