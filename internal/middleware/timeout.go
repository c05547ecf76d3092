package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/NguyenVanDuc36/AffiliHub/pkg/logging"
)

// Timeout cancels the request context after d and answers 504 if the
// handler has not written anything by then. A handler that already started
// a response (an SSE stream, say) keeps it and just sees the canceled
// context.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{w: w, h: make(http.Header), ctx: ctx}
			panicked := make(chan any, 1)
			done := make(chan struct{})
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
			case <-ctx.Done():
			}

			if tw.settle(d) {
				return
			}
			// the handler already owns w; let it notice the canceled context
			select {
			case <-done:
			case p := <-panicked:
				panic(p)
			}
		})
	}
}

// timeoutWriter buffers headers until the first write so a late handler
// cannot race the 504 answer.
type timeoutWriter struct {
	mu          sync.Mutex
	w           http.ResponseWriter
	h           http.Header
	ctx         context.Context
	wroteHeader bool
	timedOut    bool
}

// settle finishes the response from the middleware side. It returns false
// when the handler already started writing and must be waited for.
func (tw *timeoutWriter) settle(d time.Duration) bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	switch {
	case tw.wroteHeader:
		return false
	case tw.ctx.Err() == nil:
		tw.writeHeaderLocked(http.StatusOK)
	default:
		tw.timedOut = true
		logging.L(tw.ctx).Warn("request timeout", zap.Duration("timeout", d))
		writeError(tw.w, http.StatusGatewayTimeout, "gateway_timeout", "request timed out")
	}
	return true
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.expiredLocked() {
		return
	}
	tw.writeHeaderLocked(code)
}

// expiredLocked reports whether the deadline passed before anything was
// written; from then on the middleware owns the response.
func (tw *timeoutWriter) expiredLocked() bool {
	if !tw.wroteHeader && tw.ctx.Err() != nil {
		tw.timedOut = true
	}
	return tw.timedOut
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	if tw.wroteHeader {
		return
	}
	tw.wroteHeader = true
	dst := tw.w.Header()
	for k, vv := range tw.h {
		dst[k] = vv
	}
	tw.w.WriteHeader(code)
}

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.expiredLocked() {
		return 0, http.ErrHandlerTimeout
	}
	tw.writeHeaderLocked(http.StatusOK)
	return tw.w.Write(p)
}

func (tw *timeoutWriter) Flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.expiredLocked() {
		return
	}
	tw.writeHeaderLocked(http.StatusOK)
	if f, ok := tw.w.(http.Flusher); ok {
		f.Flush()
	}
}
