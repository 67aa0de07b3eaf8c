// Package requestid assigns each request an id, echoed in X-Request-ID.
package requestid

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"chainaudit/pkg/requestcontext"
)

const Header = "X-Request-ID"

// maxLen bounds ids accepted from callers.
const maxLen = 128

// Middleware reuses a caller-supplied id when it is short and printable,
// otherwise it generates one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(Header))
		if !valid(reqID) {
			reqID = uuid.NewString()
		}
		w.Header().Set(Header, reqID)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), reqID)))
	})
}

func valid(id string) bool {
	if id == "" || len(id) > maxLen {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}
