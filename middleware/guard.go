// Package middleware adapts HTTP semantics to securecore Engine calls:
// bearer-token authentication, policy checks, audit recording, and tiered
// rate limiting. All decisions are delegated to the Engine; this package only
// translates requests and writes status codes.
package middleware

import (
	"net/http"
	"strings"
	"time"

	securecore "github.com/caredesk/securecore"
	"github.com/caredesk/securecore/audit"
)

// Guard authenticates the request, enforces the policy tuple, and records an
// audit entry with status and duration. The authenticated principal is
// attached to the request context; read it with
// securecore.PrincipalFromContext.
func Guard(engine *securecore.Engine, resource, action string, auditAction audit.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := securecore.WithClientIP(r.Context(), clientIP(r))
			ctx = securecore.WithUserAgent(ctx, r.UserAgent())
			if id := r.Header.Get("X-Request-ID"); id != "" {
				ctx = securecore.WithCorrelationID(ctx, id)
			}

			tokenStr, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			start := time.Now()
			principal, err := engine.Authenticate(ctx, tokenStr)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if err := engine.Authorize(principal, resource, action); err != nil {
				engine.Audit(ctx, audit.Entry{
					ActorID:    principal.ID,
					Action:     auditAction,
					EntityType: resource,
					StatusCode: http.StatusForbidden,
					Duration:   time.Since(start),
					Success:    false,
					Error:      err.Error(),
				})
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx = securecore.WithPrincipal(ctx, principal)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))

			engine.Audit(ctx, audit.Entry{
				ActorID:    principal.ID,
				Action:     auditAction,
				EntityType: resource,
				StatusCode: recorder.status,
				Duration:   time.Since(start),
				Success:    recorder.status < 400,
			})
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}

// clientIP trusts X-Forwarded-For's first hop when present, falling back to
// the connection address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
