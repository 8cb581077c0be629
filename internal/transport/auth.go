package transport

import (
	"net/http"
)

// Authenticator applies credentials to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request)
}

// NoAuth applies no credentials.
type NoAuth struct{}

// Apply implements Authenticator.
func (NoAuth) Apply(_ *http.Request) {}

// BearerAuth sends the key as an Authorization bearer token.
type BearerAuth struct {
	Key string
}

// Apply implements Authenticator.
func (a BearerAuth) Apply(req *http.Request) {
	if a.Key != "" {
		req.Header.Set("Authorization", "Bearer "+a.Key)
	}
}

// HeaderAuth sends the key verbatim in a custom header.
type HeaderAuth struct {
	Header string
	Key    string
}

// Apply implements Authenticator.
func (a HeaderAuth) Apply(req *http.Request) {
	if a.Key != "" {
		req.Header.Set(a.Header, a.Key)
	}
}

// APIKeyAuth returns the authenticator used by Stash and stash-box servers.
func APIKeyAuth(key string) HeaderAuth {
	return HeaderAuth{Header: "ApiKey", Key: key}
}

// CookieAuth sends a session cookie, as handed to plugins by the Stash server.
type CookieAuth struct {
	Name  string
	Value string
}

// Apply implements Authenticator.
func (a CookieAuth) Apply(req *http.Request) {
	if a.Value != "" {
		req.AddCookie(&http.Cookie{Name: a.Name, Value: a.Value})
	}
}

// Chain applies several authenticators in order.
type Chain []Authenticator

// Apply implements Authenticator.
func (c Chain) Apply(req *http.Request) {
	for _, a := range c {
		a.Apply(req)
	}
}
