// ABOUTME: Request wrapper applying CORS headers, OPTIONS preflight and panic recovery
// ABOUTME: responseGuard ensures each request writes exactly one status line

package gateway

import (
	"net/http"
	"runtime/debug"
	"time"
)

const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type"
)

// responseGuard records the status written through it and drops any
// later attempt to write a second status line.
type responseGuard struct {
	http.ResponseWriter
	status int
}

func (rw *responseGuard) WriteHeader(status int) {
	if rw.status != 0 {
		return
	}
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseGuard) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// written reports whether a status line has been sent.
func (rw *responseGuard) written() bool {
	return rw.status != 0
}

func (rw *responseGuard) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// wrap applies CORS, answers preflight requests, rejects HEAD and recovers
// handler panics.
func (g *Gateway) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseGuard{ResponseWriter: w}

		h := rw.Header()
		h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				g.logger.Error("panic in handler",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				if !rw.written() {
					g.sendJSONError(rw, http.StatusInternalServerError, "Internal Server Error")
				}
			}
			g.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"duration", time.Since(start),
			)
		}()

		switch r.Method {
		case http.MethodOptions:
			rw.WriteHeader(http.StatusNoContent)
		case http.MethodHead:
			// GET patterns also match HEAD; no route accepts it.
			g.handleNotFound(rw, r)
		default:
			next.ServeHTTP(rw, r)
		}
	})
}
