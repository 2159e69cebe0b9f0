package suite

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	authhandler "authd/internal/http/auth"
	"authd/internal/http/middleware"
	todohandler "authd/internal/http/todo"
	userhandler "authd/internal/http/user"
	"authd/internal/lib/jwt"
	"authd/internal/services/auth"
	"authd/internal/services/todo"
	"authd/internal/services/user"
	"authd/internal/storage/sqlite"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	router "authd/internal/http"
)

const (
	Secret          = "test-secret"
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Suite boots the full application against a throwaway sqlite database and
// an httptest server.
type Suite struct {
	*testing.T
	Server *httptest.Server
	Codec  *jwt.Codec
}

func New(t *testing.T) *Suite {
	t.Helper()
	t.Parallel()

	path := filepath.Join(t.TempDir(), "authd_e2e.db")
	applySchema(t, path)

	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := jwt.NewCodec(Secret)

	authService := auth.New(logger, store, store, store, codec, AccessTokenTTL, RefreshTokenTTL)
	userService := user.New(logger, store, store)
	todoService := todo.New(logger, store)

	mux := router.NewRouter(
		codec,
		middleware.NewRateLimiter(15*time.Minute, 1000),
		authhandler.NewHandler(authService),
		userhandler.NewHandler(userService),
		todohandler.NewHandler(todoService),
	)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &Suite{
		T:      t,
		Server: server,
		Codec:  codec,
	}
}

func applySchema(t *testing.T, path string) {
	t.Helper()

	schema, err := os.ReadFile("../migrations/000001_init.up.sql")
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(string(schema))
	require.NoError(t, err)
}

// PostJSON sends a JSON body, optionally with a bearer token, and decodes the
// JSON response.
func (s *Suite) PostJSON(path string, body any, bearer string) (int, map[string]any) {
	s.T.Helper()

	b, err := json.Marshal(body)
	require.NoError(s.T, err)

	req, err := http.NewRequest(http.MethodPost, s.Server.URL+path, bytes.NewReader(b))
	require.NoError(s.T, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return s.do(req)
}

func (s *Suite) GetJSON(path, bearer string) (int, map[string]any) {
	s.T.Helper()

	req, err := http.NewRequest(http.MethodGet, s.Server.URL+path, nil)
	require.NoError(s.T, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return s.do(req)
}

func (s *Suite) do(req *http.Request) (int, map[string]any) {
	s.T.Helper()

	resp, err := s.Server.Client().Do(req)
	require.NoError(s.T, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(s.T, json.NewDecoder(resp.Body).Decode(&out))

	return resp.StatusCode, out
}
