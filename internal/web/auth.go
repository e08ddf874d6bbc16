package web

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ignite/formsync/internal/pkg/httputil"
	"github.com/ignite/formsync/internal/pkg/logger"
)

// requireBearer rejects requests whose Authorization header does not carry
// the configured token.
func requireBearer(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
				fields := append(requestFields(r), "remote", r.RemoteAddr)
				logger.Warn("web: rejected operator request", fields...)
				httputil.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
