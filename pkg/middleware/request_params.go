package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iota-uz/outing-approval/pkg/composables"
)

// RealIP resolves the client address from X-Forwarded-For (first hop), then
// realIPHeader, then the connection's remote address. It returns "" when none
// of them carry a value.
func RealIP(r *http.Request, realIPHeader string) string {
	if r == nil {
		return ""
	}
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = strings.TrimSpace(v[:i])
		}
		if v != "" {
			return stripPort(v)
		}
	}
	if realIPHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(realIPHeader)); v != "" {
			return stripPort(v)
		}
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		return host
	}
	return s
}

// RequestParams stores the client IP and user agent on the request context.
func RequestParams(realIPHeader string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithParams(r.Context(), &composables.Params{
				IP:        RealIP(r, realIPHeader),
				UserAgent: r.UserAgent(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
