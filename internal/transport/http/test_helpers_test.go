package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/peyk-chat/peyk-server/internal/auth"
	"github.com/peyk-chat/peyk-server/internal/config"
	"github.com/peyk-chat/peyk-server/internal/core"
	"github.com/peyk-chat/peyk-server/internal/store/sqlite"
	"github.com/peyk-chat/peyk-server/internal/upload"
)

// testEnv is a fully wired server backed by an in-memory database.
type testEnv struct {
	store  *sqlite.SQLiteStore
	auth   *auth.Service
	hub    *core.Hub
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	nop := zerolog.Nop()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokens := &auth.TokenConfig{
		OTPSecret:    []byte("test-otp-secret"),
		AccessSecret: []byte("test-access-secret"),
		Issuer:       "test",
		Audience:     "test",
		OTPTTL:       2 * time.Minute,
		AccessTTL:    time.Hour,
	}
	authService := auth.NewService(st, tokens)

	saver, err := upload.NewSaver(filepath.Join(t.TempDir(), "uploads"), "/uploads", 0)
	require.NoError(t, err)

	hub := core.NewHub(st, core.NewMemoryPresence(), &nop, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	srv := NewServer(hub, authService, st, saver, &cfg, &nop)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{store: st, auth: authService, hub: hub, server: ts}
}

// doJSON performs a request against the test server and decodes the JSON body.
func (e *testEnv) doJSON(t *testing.T, method, path, token string, body any) (int, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := stdhttp.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]json.RawMessage{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// login walks the OTP flow over HTTP and returns the user's id and access token.
func (e *testEnv) login(t *testing.T, phone string) (int64, string) {
	t.Helper()

	status, body := e.doJSON(t, stdhttp.MethodPost, "/auth/send-otp", "", map[string]string{"phone": phone})
	require.Equal(t, stdhttp.StatusOK, status)

	var otpToken, code string
	require.NoError(t, json.Unmarshal(body["token"], &otpToken))
	require.NoError(t, json.Unmarshal(body["code"], &code))

	status, body = e.doJSON(t, stdhttp.MethodPost, "/auth/check-otp", "", map[string]string{
		"token": otpToken,
		"code":  code,
	})
	require.Equal(t, stdhttp.StatusOK, status)

	var id int64
	var accessToken string
	require.NoError(t, json.Unmarshal(body["id"], &id))
	require.NoError(t, json.Unmarshal(body["accessToken"], &accessToken))
	require.NotEmpty(t, accessToken)
	return id, accessToken
}
