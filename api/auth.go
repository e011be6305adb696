package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/lendconsole/transport"
)

// AuthService binds /api/auth.
type AuthService struct{ c *Client }

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token. The call is exempt from
// fault translation: a 401 here means bad credentials, not an expired
// session.
func (s AuthService) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := s.c.doJSON(transport.SkipFaults(ctx), http.MethodPost, "/api/auth/login", nil,
		loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a user and returns the server's confirmation text.
func (s AuthService) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	body, err := s.c.do(transport.SkipFaults(ctx), http.MethodPost, "/api/auth/register", nil, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
