package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CORSConfig lists what the dashboard origin may send. Empty lists fall
// back to the console defaults. An origin ending in ":*" matches any port
// on that scheme and host.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAgeSeconds  int
}

type corsPolicy struct {
	anyOrigin bool
	exact     map[string]struct{}
	anyPort   map[string]struct{}

	methods string
	headers string
	maxAge  string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	policy := corsPolicy{
		exact:   make(map[string]struct{}),
		anyPort: make(map[string]struct{}),
		methods: joinOr(cfg.AllowedMethods, "GET, POST, PUT, DELETE, OPTIONS"),
		headers: joinOr(cfg.AllowedHeaders, "Accept, Authorization, Content-Type, X-Request-Id"),
		maxAge:  "600",
	}
	if cfg.MaxAgeSeconds > 0 {
		policy.maxAge = strconv.Itoa(cfg.MaxAgeSeconds)
	}

	for _, raw := range cfg.AllowedOrigins {
		origin := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case origin == "":
		case origin == "*":
			policy.anyOrigin = true
		case strings.HasSuffix(origin, ":*"):
			policy.anyPort[strings.TrimSuffix(origin, ":*")] = struct{}{}
		default:
			policy.exact[origin] = struct{}{}
		}
	}
	return policy
}

func (p corsPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}
	if len(p.anyPort) == 0 {
		return false
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	_, ok := p.anyPort[parsed.Scheme+"://"+parsed.Hostname()]
	return ok
}

func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || !policy.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			header := w.Header()
			header.Add("Vary", "Origin")
			header.Set("Access-Control-Expose-Headers", "X-Request-Id, Retry-After, Location")
			if policy.anyOrigin {
				header.Set("Access-Control-Allow-Origin", "*")
			} else {
				header.Set("Access-Control-Allow-Origin", origin)
			}

			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			header.Add("Vary", "Access-Control-Request-Method")
			header.Add("Vary", "Access-Control-Request-Headers")
			header.Set("Access-Control-Allow-Methods", policy.methods)
			header.Set("Access-Control-Allow-Headers", policy.headers)
			header.Set("Access-Control-Max-Age", policy.maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func joinOr(values []string, fallback string) string {
	kept := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			kept = append(kept, value)
		}
	}
	if len(kept) == 0 {
		return fallback
	}
	return strings.Join(kept, ", ")
}
