package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Cheertaboi/nexu-webshop/internal/api/respond"
	"github.com/Cheertaboi/nexu-webshop/internal/apperrors"
	"github.com/Cheertaboi/nexu-webshop/internal/auth"
	"github.com/Cheertaboi/nexu-webshop/internal/ratelimit"
)

type Enforcer interface {
	Enforce(identifier string, limit int, window time.Duration, bucketKey string) ratelimit.Result
}

// RateLimit rejects callers over limit requests per window with 429.
// Authenticated callers are keyed by user id, others by client address.
func RateLimit(l Enforcer, bucket string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := l.Enforce(clientKey(r), limit, window, bucket)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Success {
				wait := int(math.Ceil(res.RetryAfter.Seconds()))
				if wait < 1 {
					wait = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(wait))
				respond.Error(w, r, apperrors.New(apperrors.CodeRateLimited, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id := auth.IdentityFrom(r.Context()); id.Authenticated() {
		return "user:" + id.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
