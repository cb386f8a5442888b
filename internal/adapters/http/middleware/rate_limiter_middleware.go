// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// NewVerificationLimitMiddleware protege o endpoint público de verificação.
// Its counters are independent from the submission limiter.
func NewVerificationLimitMiddleware(limiter ports.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			decision := limiter.CheckVerificationLimit(r.Context(), ClientIP(r))
			if !decision.Allowed {
				WriteTooManyRequests(w, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP devolve o host de RemoteAddr. Proxy headers are honoured only when
// a RealIP middleware has already rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}

	return host
}

// WriteTooManyRequests responde 429 com Retry-After e o motivo da negação.
func WriteTooManyRequests(w http.ResponseWriter, decision domain.Decision) {
	if decision.WaitSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(decision.WaitSeconds))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":        decision.Message,
		"reason":       decision.Reason,
		"wait_seconds": decision.WaitSeconds,
	})
}
