package auth

import (
	"adventcal/models"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer mimics the auth endpoints of the HTTP service.
func fakeServer(t *testing.T, logoutStatus int) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	jwtToken := "Bearer " + signedTestToken(t)
	expires := time.Date(2025, time.December, 1, 12, 0, 0, 0, time.UTC)

	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/auth/anonymous", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "anonymous")
		writeJSON(w, http.StatusCreated, models.AuthResponse{UserID: "u1", Token: "tok1", RefreshSecret: "sec", ExpiresAt: expires})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "refresh")
		var req models.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshSecret != "sec" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid refresh secret"})
			return
		}
		writeJSON(w, http.StatusOK, models.AuthResponse{UserID: req.UserID, Token: "tok2", ExpiresAt: expires.Add(time.Hour)})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "logout "+r.Header.Get("Authorization"))
		if logoutStatus != http.StatusNoContent {
			writeJSON(w, logoutStatus, errorBody{Error: "nope"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "me")
		if r.Header.Get("Authorization") != "Bearer good" && r.Header.Get("Authorization") != jwtToken {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid or expired token"})
			return
		}
		writeJSON(w, http.StatusOK, models.NewUser("u9", nil, nil, nil))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func signedTestToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func TestServerProvider_SignInRefreshSignOut(t *testing.T) {
	srv, calls := fakeServer(t, http.StatusNoContent)
	p := NewServerProvider(srv.URL)
	ctx := context.Background()

	var seen []*Identity
	p.AddStateListener(func(id *Identity) { seen = append(seen, id) })

	id, err := p.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
	assert.Equal(t, "tok1", id.Token)
	assert.True(t, id.Anonymous)

	refreshed, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok2", refreshed.Token)
	assert.Equal(t, "sec", refreshed.RefreshSecret, "refresh secret carried over")
	assert.Equal(t, "tok2", p.CurrentIdentity().Token)

	require.NoError(t, p.SignOut(ctx))
	assert.Nil(t, p.CurrentIdentity())
	assert.Equal(t, []string{"anonymous", "refresh", "logout Bearer tok2"}, *calls)

	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])

	require.NoError(t, p.SignOut(ctx), "signed-out sign-out is a no-op")
	assert.Len(t, *calls, 3)
}

func TestServerProvider_SignOutFailureKeepsIdentity(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusInternalServerError)
	p := NewServerProvider(srv.URL)
	ctx := context.Background()

	_, err := p.SignInAnonymously(ctx)
	require.NoError(t, err)

	err = p.SignOut(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.NotNil(t, p.CurrentIdentity())
}

func TestServerProvider_SignOutWithExpiredToken(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusUnauthorized)
	p := NewServerProvider(srv.URL)
	ctx := context.Background()

	_, err := p.SignInAnonymously(ctx)
	require.NoError(t, err)
	require.NoError(t, p.SignOut(ctx))
	assert.Nil(t, p.CurrentIdentity())
}

func TestServerProvider_RefreshWithoutSecret(t *testing.T) {
	p := NewServerProvider("http://127.0.0.1:1")
	_, err := p.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrCannotRefresh)
}

func TestServerProvider_Restore(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusNoContent)
	p := NewServerProvider(srv.URL)
	ctx := context.Background()

	_, err := p.Restore(ctx, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid or expired token")
	assert.Nil(t, p.CurrentIdentity())

	token := signedTestToken(t)
	id, err := p.Restore(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u9", id.UID)
	assert.Equal(t, 2030, id.ExpiresAt.Year())

	id, err = p.Restore(ctx, "good")
	require.NoError(t, err)
	assert.True(t, id.ExpiresAt.IsZero(), "opaque tokens have no known expiry")
}

func TestServerProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewSession(NewServerProvider(url))
	_, err := s.SignInAnonymously(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsAuthenticated())
}
