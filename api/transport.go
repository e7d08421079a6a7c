package api

import (
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const RequestIDHeader = "X-Request-ID"

// headerTransport stamps the JSON headers and a request id on every request
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", "application/json")
	if r.Body != nil && r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if r.Header.Get(RequestIDHeader) == "" {
		r.Header.Set(RequestIDHeader, uuid.New().String())
	}
	return t.base.RoundTrip(r)
}

func newPublicTransport(base http.RoundTripper) http.RoundTripper {
	return &headerTransport{base: base}
}

// newPrivateTransport adds "Authorization: Bearer <access>" from source on top of the public headers
func newPrivateTransport(base http.RoundTripper, source oauth2.TokenSource) http.RoundTripper {
	return &headerTransport{base: &oauth2.Transport{Source: source, Base: base}}
}
