package cli

import (
	"adventcal/api"
	"adventcal/client"
	"adventcal/config"
	"adventcal/db"
	"adventcal/models"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := db.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{JwtSecret: "cli-test-secret", TokenLifetime: time.Hour, BcryptCost: 4}
	srv := httptest.NewServer(api.NewRouter(db.NewRepository(store), cfg, nil))
	t.Cleanup(srv.Close)
	return srv
}

// run executes one command line against serverURL and returns its stdout.
func run(t *testing.T, serverURL string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ADVENT_TOKEN", "")
	cmd := NewRootCmd(&config.Config{ServerURL: serverURL})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

func signin(t *testing.T, serverURL string) models.AuthResponse {
	t.Helper()
	out, err := run(t, serverURL, "signin")
	require.NoError(t, err)
	auth := decode[models.AuthResponse](t, out)
	require.NotEmpty(t, auth.UserID)
	require.NotEmpty(t, auth.Token)
	return auth
}

func TestSignin_Server(t *testing.T) {
	srv := startServer(t)
	auth := signin(t, srv.URL)
	assert.NotEmpty(t, auth.RefreshSecret)
	assert.True(t, auth.ExpiresAt.After(time.Now()))
}

func TestSignin_Firebase(t *testing.T) {
	toolkit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signUp", r.URL.Path)
		assert.Equal(t, "web-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"idToken":"id-tok","refreshToken":"ref","expiresIn":"3600","localId":"fb-uid"}`))
	}))
	defer toolkit.Close()

	out, err := run(t, "http://127.0.0.1:1", "signin", "--provider", "firebase", "--api-key", "web-key", "--toolkit-url", toolkit.URL)
	require.NoError(t, err)
	auth := decode[models.AuthResponse](t, out)
	assert.Equal(t, "fb-uid", auth.UserID)
	assert.Equal(t, "id-tok", auth.Token)
	assert.Equal(t, "ref", auth.RefreshSecret)
}

func TestSignin_Errors(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", "signin", "--provider", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown provider")

	_, err = run(t, "http://127.0.0.1:1", "signin", "--provider", "firebase")
	assert.ErrorContains(t, err, "--api-key")
}

func TestClientCommands_RequireToken(t *testing.T) {
	for _, args := range [][]string{
		{"me"},
		{"calendar", "list"},
		{"calendar", "show", "abc"},
		{"door", "unlock", "abc", "1"},
	} {
		_, err := run(t, "http://127.0.0.1:1", args...)
		assert.ErrorContains(t, err, "--token required", args)
	}
}

func TestClientCommands_BadToken(t *testing.T) {
	srv := startServer(t)
	_, err := run(t, srv.URL, "--token", "not-a-jwt", "me")
	require.Error(t, err)
	assert.ErrorContains(t, err, "restore session")
}

func TestGiftingWorkflow(t *testing.T) {
	srv := startServer(t)
	creator := signin(t, srv.URL)
	recipient := signin(t, srv.URL)

	asCreator := func(args ...string) (string, error) {
		return run(t, srv.URL, append([]string{"--token", creator.Token}, args...)...)
	}
	asRecipient := func(args ...string) (string, error) {
		return run(t, srv.URL, append([]string{"--token", recipient.Token}, args...)...)
	}

	// profile
	out, err := asCreator("me", "--name", "Santa")
	require.NoError(t, err)
	me := decode[models.User](t, out)
	assert.Equal(t, creator.UserID, me.UID)
	require.NotNil(t, me.DisplayName)
	assert.Equal(t, "Santa", *me.DisplayName)

	out, err = asCreator("me", "--clear-name")
	require.NoError(t, err)
	assert.Nil(t, decode[models.User](t, out).DisplayName)

	// calendar
	_, err = asCreator("calendar", "create")
	assert.ErrorContains(t, err, "recipient")

	out, err = asCreator("calendar", "create", "-r", "Ada", "-i", "astronomy")
	require.NoError(t, err)
	cal := decode[models.Calendar](t, out)
	assert.Equal(t, "Ada", cal.RecipientName)
	assert.Len(t, cal.Doors, models.DaysInCalendar)

	out, err = asCreator("calendar", "list", "--scope", "created", "-q", "recipientName equals Ada")
	require.NoError(t, err)
	page := decode[models.CalendarListResponse](t, out)
	assert.Equal(t, 1, page.Total)

	// doors
	out, err = asCreator("door", "set", cal.ID, "1", "--text", "A star chart")
	require.NoError(t, err)
	door := decode[models.Door](t, out)
	assert.Equal(t, models.ContentText, door.ContentType)
	require.NotNil(t, door.Text)
	assert.Equal(t, "A star chart", *door.Text)

	out, err = asCreator("door", "set", cal.ID, "2", "--image", "https://example.com/moon.png")
	require.NoError(t, err)
	assert.Equal(t, models.ContentImage, decode[models.Door](t, out).ContentType)

	out, err = asCreator("door", "set", cal.ID, "2", "--clear")
	require.NoError(t, err)
	assert.Equal(t, models.ContentEmpty, decode[models.Door](t, out).ContentType)

	_, err = asCreator("door", "set", cal.ID, "3")
	assert.ErrorContains(t, err, "--text, --image or --clear")

	_, err = asCreator("door", "show", cal.ID, "25")
	assert.ErrorContains(t, err, "between 1 and 24")

	out, err = asCreator("door", "show", cal.ID, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, decode[models.Door](t, out).Day)

	// only recipients open doors
	_, err = asCreator("door", "unlock", cal.ID, "1")
	assert.True(t, client.IsStatus(err, http.StatusForbidden), "%v", err)

	// sharing
	_, err = asRecipient("calendar", "show", cal.ID)
	assert.True(t, client.IsStatus(err, http.StatusForbidden), "%v", err)

	out, err = asCreator("calendar", "share", cal.ID, recipient.UserID)
	require.NoError(t, err)
	assert.Contains(t, out, "shared "+cal.ID)

	out, err = asRecipient("calendar", "show", cal.ID)
	require.NoError(t, err)
	assert.Equal(t, cal.ID, decode[models.Calendar](t, out).ID)

	out, err = asRecipient("calendar", "list", "--scope", "received")
	require.NoError(t, err)
	assert.Equal(t, 1, decode[models.CalendarListResponse](t, out).Total)

	// delete
	_, err = asRecipient("calendar", "delete", cal.ID)
	assert.True(t, client.IsStatus(err, http.StatusForbidden), "%v", err)

	out, err = asCreator("calendar", "delete", cal.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+cal.ID)

	_, err = asCreator("calendar", "show", cal.ID)
	assert.True(t, client.IsStatus(err, http.StatusNotFound), "%v", err)
}

func TestServe_InvalidConfig(t *testing.T) {
	cfg := &config.Config{JwtSecret: "x", StoreDriver: config.DriverFile, DbFilePath: "advent.json", SaveInterval: time.Second, TokenLifetime: time.Hour, BcryptCost: 4}
	cmd := NewRootCmd(cfg)
	cmd.SetArgs([]string{"serve", "--driver", "carrier-pigeon"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "unsupported store driver")
	assert.Equal(t, "carrier-pigeon", cfg.StoreDriver, "flag overrides the environment")
}
