package server

import (
	"crypto/subtle"
	"net/http"
)

// TokenAuth admits websocket clients presenting the configured token in the token query
// parameter. An empty token admits everyone.
type TokenAuth struct {
	token string
}

func NewTokenAuth(token string) *TokenAuth { return &TokenAuth{token: token} }

func (a *TokenAuth) Name() string { return "TokenAuth" }

// OnConnect checks the request before it is upgraded.
func (a *TokenAuth) OnConnect(r *http.Request) error {
	if a == nil || a.token == "" {
		return nil
	}
	got := r.URL.Query().Get("token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
