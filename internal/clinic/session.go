package clinic

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginResponse is the token pair issued by the login endpoint.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair and stores it. On any error
// nothing is stored.
func (c *Client) Login(ctx context.Context, identifier, secret string) (*LoginResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	req, err := JSONRequest(http.MethodPost, c.auth.login, loginRequest{Username: identifier, Password: secret})
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	var payload LoginResponse
	if err := resp.Decode(&payload); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if payload.Access == "" {
		return nil, fmt.Errorf("login: %w", ErrMissingAccessToken)
	}
	if err := c.store.Save(payload.Access, payload.Refresh); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	c.log.Info().Str("username", identifier).Msg("signed in")
	return &payload, nil
}

// Logout discards the stored tokens. The backend is not contacted.
func (c *Client) Logout() error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.log.Info().Msg("signed out")
	return nil
}

// IsAuthenticated reports whether an access token is stored. The token is not
// validated; an expired token is discovered by the next 401.
func (c *Client) IsAuthenticated() bool {
	if c == nil {
		return false
	}
	return c.currentAccess() != ""
}

// Identity is what the access token says about the signed-in user. It is
// read for display only.
type Identity struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim lies before now. Tokens
// without exp never expire by this measure.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// Claims decodes the stored access token without verifying its signature.
func (c *Client) Claims() (Identity, error) {
	if c == nil {
		return Identity{}, fmt.Errorf("client is nil")
	}
	token := c.currentAccess()
	if token == "" {
		return Identity{}, ErrNotAuthenticated
	}
	return parseIdentity(token)
}

func parseIdentity(token string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("decode access token: %w", err)
	}

	var id Identity
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	id.UserID = claimString(claims["user_id"])
	if id.UserID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			id.UserID = sub
		}
	}
	id.Username = claimString(claims["username"])
	return id, nil
}

func claimString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(value)
	}
}
