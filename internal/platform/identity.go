package platform

import (
	"context"
	"errors"
	"net/http"

	"github.com/juliodz03/websitetmdt-client/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthState, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return &domain.AuthState{Token: resp.Token, User: resp.User}, nil
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

func (c *Client) Register(ctx context.Context, email, password, fullName string) (*domain.AuthState, error) {
	var resp authResponse
	req := registerRequest{Email: email, Password: password, FullName: fullName}
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &domain.AuthState{Token: resp.Token, User: resp.User}, nil
}

type meResponse struct {
	User domain.User `json:"user"`
}

// Me refreshes the cached profile, including the loyalty point balance
// the preview engine clamps against.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var resp meResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return &resp.User, nil
}
