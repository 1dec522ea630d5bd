package clinic

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/ClinicFlow2/frontend/internal/credstore"
)

func loginServer(t *testing.T, path string, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var refreshCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(path, handler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &refreshCalls
}

func TestLogin_StoresTokenPair(t *testing.T) {
	t.Parallel()

	var got loginRequest
	server, _ := loginServer(t, "/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, LoginResponse{Access: "A1", Refresh: "R1"})
	})
	store := credstore.NewMemoryStore()
	c := newTestClient(t, server.URL, store)

	require.False(t, c.IsAuthenticated())
	resp, err := c.Login(testContext(t), "drhouse", "vicodin")
	require.NoError(t, err)
	require.Equal(t, &LoginResponse{Access: "A1", Refresh: "R1"}, resp)
	require.Equal(t, loginRequest{Username: "drhouse", Password: "vicodin"}, got)

	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{Access: "A1", Refresh: "R1"}, tokens)
	require.True(t, c.IsAuthenticated())

	require.NoError(t, c.Logout())
	require.False(t, c.IsAuthenticated())
	tokens, _ = store.Read()
	require.Equal(t, credstore.Tokens{}, tokens)
}

func TestLogin_RejectedCredentialsDoNotRefresh(t *testing.T) {
	t.Parallel()

	server, other := loginServer(t, "/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
	})
	// A stale session with a refresh token must not be used to retry a login.
	store := seededStore(t, "old", "R-old")
	c := newTestClient(t, server.URL, store)

	_, err := c.Login(testContext(t), "drhouse", "wrong")
	require.True(t, IsUnauthorized(err))
	require.ErrorContains(t, err, "No active account")
	require.Zero(t, other.Load(), "no other endpoint is contacted")

	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{Access: "old", Refresh: "R-old"}, tokens)
}

func TestLogin_MissingAccessStoresNothing(t *testing.T) {
	t.Parallel()

	server, _ := loginServer(t, "/api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"refresh": "R1"})
	})
	store := credstore.NewMemoryStore()
	c := newTestClient(t, server.URL, store)

	_, err := c.Login(testContext(t), "drhouse", "vicodin")
	require.ErrorIs(t, err, ErrMissingAccessToken)
	tokens, _ := store.Read()
	require.Equal(t, credstore.Tokens{}, tokens)
}

func TestLogin_CustomAuthBasePath(t *testing.T) {
	t.Parallel()

	server, _ := loginServer(t, "/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, LoginResponse{Access: "A1", Refresh: "R1"})
	})
	c := newTestClient(t, server.URL, credstore.NewMemoryStore(), WithAuthBasePath("/auth"))

	_, err := c.Login(testContext(t), "u", "p")
	require.NoError(t, err)
	require.True(t, c.auth.exempt("/auth/token/refresh/"))
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestClaims_DecodesIdentity(t *testing.T) {
	t.Parallel()

	exp := time.Date(2030, time.January, 2, 3, 4, 5, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{
		"user_id":  42,
		"username": "drhouse",
		"exp":      exp.Unix(),
	})
	c := newTestClient(t, "http://127.0.0.1:1", seededStore(t, token, "R1"))

	id, err := c.Claims()
	require.NoError(t, err)
	require.Equal(t, "42", id.UserID)
	require.Equal(t, "drhouse", id.Username)
	require.True(t, exp.Equal(id.ExpiresAt))
	require.False(t, id.Expired(exp.Add(-time.Minute)))
	require.True(t, id.Expired(exp.Add(time.Minute)))
}

func TestClaims_FallsBackToSubject(t *testing.T) {
	t.Parallel()

	token := signedToken(t, jwt.MapClaims{"sub": "user-7"})
	id, err := parseIdentity(token)
	require.NoError(t, err)
	require.Equal(t, "user-7", id.UserID)
	require.True(t, id.ExpiresAt.IsZero())
	require.False(t, id.Expired(time.Now()))
}

func TestClaims_Errors(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://127.0.0.1:1", credstore.NewMemoryStore())
	_, err := c.Claims()
	require.ErrorIs(t, err, ErrNotAuthenticated)

	c = newTestClient(t, "http://127.0.0.1:1", seededStore(t, "opaque-token", ""))
	require.True(t, c.IsAuthenticated(), "presence alone counts as signed in")
	_, err = c.Claims()
	require.ErrorContains(t, err, "decode access token")
}
