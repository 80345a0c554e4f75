package router

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/didip/tollbooth/v5"
	"github.com/didip/tollbooth/v5/limiter"
)

// RateLimit configures the per client IP limiter applied to selected routes.
type RateLimit struct {
	// PerMinute is the sustained number of requests per IP and route. Zero disables the limiter.
	PerMinute int
	// Burst is the number of requests allowed at once.
	Burst int
	// Endpoints maps method to the matched route paths being limited.
	Endpoints map[string][]string
}

func middlewareRateLimit(cfg RateLimit) Middleware {
	if cfg.PerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limited := make(map[string]map[string]struct{}, len(cfg.Endpoints))
	for method, paths := range cfg.Endpoints {
		limited[method] = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			limited[method][p] = struct{}{}
		}
	}

	lmt := tollbooth.NewLimiter(float64(cfg.PerMinute)/60, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	}).SetBurst(max(cfg.Burst, 1))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			if _, ok := limited[r.Method][route]; !ok {
				next.ServeHTTP(w, r)
				return
			}

			if herr := tollbooth.LimitByKeys(lmt, []string{r.RemoteAddr, r.Method, route}); herr != nil {
				slog.WarnContext(r.Context(), "request rate limit reached", "ip", r.RemoteAddr, "path", route)
				w.Header().Set("Retry-After", strconv.Itoa(max(60/cfg.PerMinute, 1)))
				writeJSON(w, errorResponse{Message: "Request rate limit reached"}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
