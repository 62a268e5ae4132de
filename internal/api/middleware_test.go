package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/npezzotti/go-scoreboard/internal/auth"
	"github.com/npezzotti/go-scoreboard/internal/credentials"
	"github.com/npezzotti/go-scoreboard/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler_PanicRecovery(t *testing.T) {
	logger, buf := testutil.CaptureLogger(t)
	app := &ScoreboardApp{
		log: logger,
	}

	// handler that panics
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(errors.New("test panic"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler := app.errorHandler(panicHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
	assert.Contains(t, buf.String(), "panic: test panic")
}

func Test_errorHandler_NoPanic(t *testing.T) {
	app := &ScoreboardApp{}

	// simple handler that does not panic
	called := false
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler := app.errorHandler(okHandler)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.True(t, called, "expected handler to be called")
}

func Test_adminMiddleware(t *testing.T) {
	store := &credentials.MockStore{}
	store.On("ReadPassword").Return("secret", nil)

	sessions := auth.NewSessionManager(store, []byte("test-signing-key"))
	stale, err := sessions.Login("secret")
	assert.NoError(t, err)
	current, err := sessions.Login("secret")
	assert.NoError(t, err)

	tcases := []struct {
		name         string
		token        string
		expectedCode int
	}{
		{
			name:         "valid token",
			token:        current,
			expectedCode: http.StatusOK,
		},
		{
			name:         "missing token",
			token:        "",
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "revoked token",
			token:        stale,
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "malformed token",
			token:        "not-a-token",
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			logger, buf := testutil.CaptureLogger(t)
			app := &ScoreboardApp{
				log:      logger,
				sessions: sessions,
			}

			called := false
			next := func(w http.ResponseWriter, r *http.Request) {
				called = true
				token, ok := AdminToken(r.Context())
				assert.True(t, ok, "expected token in context")
				assert.Equal(t, tc.token, token)
				w.WriteHeader(http.StatusOK)
			}

			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/rooms", nil)
			if tc.token != "" {
				req.Header.Set(adminTokenHeader, tc.token)
			}

			app.adminMiddleware(next)(rr, req)

			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				assert.True(t, called, "expected handler to be called")
				assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")
			} else {
				assert.False(t, called, "expected handler not to be called")
				assert.Contains(t, buf.String(), "rejected admin request GET /api/admin/rooms")
			}
		})
	}
}

func TestAdminToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := AdminToken(req.Context())
	assert.False(t, ok, "expected no token in a bare context")

	token, ok := AdminToken(WithAdminToken(req.Context(), "abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}
