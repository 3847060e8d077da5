package gateway

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Register posts the sign-up form as multipart data, avatar included when present.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"username", reg.Username},
		{"email", reg.Email},
		{"phone", reg.Phone},
		{"password", reg.Password},
	}
	for _, f := range fields {
		if err := form.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("build register form: %w", err)
		}
	}
	if len(reg.Avatar) > 0 {
		name := reg.AvatarName
		if name == "" {
			name = "avatar"
		}
		part, err := form.CreateFormFile("avatar", name)
		if err != nil {
			return nil, fmt.Errorf("build register form: %w", err)
		}
		if _, err := part.Write(reg.Avatar); err != nil {
			return nil, fmt.Errorf("build register form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("build register form: %w", err)
	}

	rc := call{
		method:      http.MethodPost,
		path:        "/api/auth/register",
		body:        &buf,
		contentType: form.FormDataContentType(),
	}
	var user domain.User
	if err := c.do(ctx, rc, &user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return c.login(ctx, "/api/auth/login", creds)
}

func (c *Client) AdminLogin(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	return c.login(ctx, "/api/auth/admin-login", creds)
}

func (c *Client) login(ctx context.Context, path string, creds domain.Credentials) (*domain.AuthResult, error) {
	rc, err := jsonCall(http.MethodPost, path, "", creds)
	if err != nil {
		return nil, err
	}
	var res domain.AuthResult
	if err := c.do(ctx, rc, &res); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if res.Token == "" || res.User == nil {
		return nil, fmt.Errorf("%w: login response without token or user", domain.ErrUnauthenticated)
	}
	return &res, nil
}
