package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-charger-client/internal/errors"
	"github.com/jrsteele09/go-charger-client/token"
)

const (
	pathAuthorize  = "auth/authorize"
	pathRenew      = "auth/authorize/"
	pathSigningKey = "auth/signing_key"
)

// SignIn exchanges email and password for a credential pair
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResponse, error) {
	var resp SignInResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathAuthorize,
		body:   AuthorizeRequest{Type: GrantPassword, Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrRequestFailed, "[api SignIn] response without credentials")
	}
	return &resp, nil
}

// Renew exchanges a refresh credential for a new access credential.
// Network failures, 408, 429 and 5xx wrap errors.ErrTransient, every other failure is a rejection.
func (c *Client) Renew(ctx context.Context, refreshToken string) (string, error) {
	var resp RenewResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   pathRenew,
		body:   AuthorizeRequest{Type: GrantToken, Refresh: refreshToken},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Access == "" {
		return "", apperrors.Wrapf(apperrors.ErrRequestFailed, "[api Renew] response without access credential")
	}
	return resp.Access, nil
}

// SigningKey fetches the key the service signs credentials with. The body is
// either {"key": ..., "alg": ...}, a JSON string or a bare PEM document.
func (c *Client) SigningKey(ctx context.Context) (token.SigningKey, error) {
	data, err := c.send(ctx, request{private: true, method: http.MethodGet, path: pathSigningKey})
	if err != nil {
		return token.SigningKey{}, err
	}

	var key token.SigningKey
	if json.Unmarshal(data, &key) == nil && key.Key != "" {
		return key, nil
	}
	var raw string
	if json.Unmarshal(data, &raw) == nil && raw != "" {
		return token.SigningKey{Key: raw}, nil
	}
	if body := strings.TrimSpace(string(data)); strings.HasPrefix(body, "-----BEGIN") {
		return token.SigningKey{Key: body}, nil
	}
	return token.SigningKey{}, apperrors.Wrapf(apperrors.ErrRequestFailed, "[api SigningKey] unrecognised body")
}
