package security

import (
	"net/http"
	"strconv"
	"time"
)

// HeadersConfig holds the response headers set on every API response.
type HeadersConfig struct {
	CSP string

	// HSTS is only sent on HTTPS requests, including TLS terminated by a
	// proxy that sets X-Forwarded-Proto when TrustForwardedProto is on.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	TrustForwardedProto   bool

	ReferrerPolicy    string
	PermissionsPolicy string
}

// DefaultHeadersConfig returns defaults for a JSON API that serves no documents.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'",
		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	static [][2]string
	hsts   string
	proxy  bool
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{
		static: [][2]string{
			{"X-Content-Type-Options", "nosniff"},
			{"X-Frame-Options", "DENY"},
			{"X-XSS-Protection", "0"},
			{"Cross-Origin-Opener-Policy", "same-origin"},
			{"Cross-Origin-Resource-Policy", "same-origin"},
		},
		proxy: config.TrustForwardedProto,
	}
	for _, kv := range [][2]string{
		{"Content-Security-Policy", config.CSP},
		{"Referrer-Policy", config.ReferrerPolicy},
		{"Permissions-Policy", config.PermissionsPolicy},
	} {
		if kv[1] != "" {
			h.static = append(h.static, kv)
		}
	}
	if secs := int64(config.HSTSMaxAge / time.Second); secs > 0 {
		h.hsts = "max-age=" + strconv.FormatInt(secs, 10)
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		for _, kv := range h.static {
			headers.Set(kv[0], kv[1])
		}
		if h.hsts != "" && h.isHTTPS(r) {
			headers.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HeadersMiddleware) isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return h.proxy && r.Header.Get("X-Forwarded-Proto") == "https"
}

// NoStore marks responses as uncacheable. Rewards change with every
// recorded transaction and with the passing of days.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
