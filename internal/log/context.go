package log

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

type requestIDKey struct{}

// WithRequestID returns ctx carrying the correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID is the correlation id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Correlate adds the request id of ctx to l, when there is one.
func Correlate(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	if id := RequestID(ctx); id != "" {
		return l.With().Str(FieldRequestID, id).Logger()
	}
	return l
}

// AccessLog emits one line per request: debug normally, warn for server errors.
// route names the request; the raw path holds the descriptor token and is never logged.
func AccessLog(route func(*http.Request) string) func(http.Handler) http.Handler {
	access := WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &recorder{ResponseWriter: w}
			began := time.Now()
			next.ServeHTTP(rec, r)

			name := "unmatched"
			if route != nil {
				if p := route(r); p != "" {
					name = p
				}
			}
			l := Correlate(r.Context(), access)
			ev := l.Debug()
			if rec.Status() >= http.StatusInternalServerError {
				ev = l.Warn()
			}
			ev.Str("method", r.Method).
				Str("route", name).
				Int("status", rec.Status()).
				Int("bytes", rec.bytes).
				Int64(FieldDuration, time.Since(began).Milliseconds()).
				Msg("request")
		})
	}
}

// recorder remembers the first status written and counts body bytes.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *recorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
