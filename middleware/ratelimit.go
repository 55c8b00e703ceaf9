package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/caredesk/securecore/ratelimit"
)

// bulk paths consume the bulk tier regardless of authentication state.
var bulkPathMarkers = []string{"/export", "/import", "/bulk"}

// RateChecker consumes one unit of a tier's budget per call. A bare
// *ratelimit.Limiter satisfies it; so does *securecore.Engine, which also
// counts limited requests in its metrics.
type RateChecker interface {
	Check(tier ratelimit.Tier) (ratelimit.Result, error)
}

// RateLimit consumes one unit of the appropriate tier per request and always
// emits X-RateLimit-Limit, X-RateLimit-Remaining, and X-RateLimit-Reset.
// Exhausted requests get 429 with Retry-After; the informational headers are
// present on that path too.
//
// Tier selection: bulk paths by path pattern, otherwise authenticated when a
// bearer token is present (its validity is the Guard's concern, not ours),
// otherwise unauthenticated.
func RateLimit(checker RateChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil {
				next.ServeHTTP(w, r)
				return
			}

			tier := selectTier(r)
			result, err := checker.Check(tier)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

			if err != nil {
				if errors.Is(err, ratelimit.ErrLimited) {
					retryAfter := int(result.RetryAfter.Seconds())
					if retryAfter < 1 {
						retryAfter = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					return
				}
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func selectTier(r *http.Request) ratelimit.Tier {
	path := strings.ToLower(r.URL.Path)
	for _, marker := range bulkPathMarkers {
		if strings.Contains(path, marker) {
			return ratelimit.TierBulk
		}
	}
	if _, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return ratelimit.TierAuthenticated
	}
	return ratelimit.TierUnauthenticated
}
