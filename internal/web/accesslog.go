package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ignite/formsync/internal/pkg/logger"
)

// accessLog replaces middleware.Logger. Entries carry the route pattern
// instead of the request URI, so transfer tokens in the path never reach
// the log in full.
var accessLog = middleware.RequestLogger(accessLogFormatter{})

type accessLogFormatter struct{}

func (accessLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &accessLogEntry{r: r}
}

type accessLogEntry struct {
	r *http.Request
}

func (e *accessLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	fields := append(requestFields(e.r),
		"status", status,
		"bytes", bytes,
		"duration_ms", elapsed.Milliseconds(),
		"remote", e.r.RemoteAddr,
		"request_id", middleware.GetReqID(e.r.Context()),
	)
	logger.Info("web: request", fields...)
}

func (e *accessLogEntry) Panic(v interface{}, _ []byte) {
	fields := append(requestFields(e.r), "panic", fmt.Sprint(v))
	logger.Error("web: handler panic", fields...)
}

// requestFields describes r by method and route pattern. A token path
// parameter is added in its shortened form.
func requestFields(r *http.Request) []interface{} {
	route := "unmatched"
	var tok string
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			route = p
		}
		tok = rctx.URLParam("token")
	}
	fields := []interface{}{"method", r.Method, "route", route}
	if tok != "" {
		fields = append(fields, "token", logger.ShortToken(tok))
	}
	return fields
}
