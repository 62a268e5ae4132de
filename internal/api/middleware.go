package api

import (
	"context"
	"fmt"
	"net/http"
)

const adminTokenHeader = "X-Admin-Token"

type contextKey string

const adminTokenKey contextKey = "admin-token"

func WithAdminToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, adminTokenKey, token)
}

func AdminToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(adminTokenKey).(string)

	return token, ok
}

func (s *ScoreboardApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// adminMiddleware rejects the request before it reaches the handler unless it
// carries the current admin token.
func (s *ScoreboardApp) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(adminTokenHeader)
		if !s.sessions.Authenticate(token) {
			s.log.Printf("rejected admin request %s %s", r.Method, r.URL.Path)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithAdminToken(r.Context(), token)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
