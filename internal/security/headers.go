package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers sets the response hardening headers. The API only serves JSON to
// the POS and QR menu clients, so framing and caching are refused outright.
type Headers struct {
	// HSTS adds Strict-Transport-Security on TLS requests, including those
	// terminated at a proxy that sets X-Forwarded-Proto.
	HSTS       bool
	HSTSMaxAge time.Duration
}

var baseHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	hsts := "max-age=" + strconv.FormatInt(int64(h.maxAge()/time.Second), 10) + "; includeSubDomains"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for _, kv := range baseHeaders {
			out.Set(kv[0], kv[1])
		}
		if h.HSTS && isHTTPS(r) {
			out.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) maxAge() time.Duration {
	if h.HSTSMaxAge <= 0 {
		return 365 * 24 * time.Hour
	}
	return h.HSTSMaxAge
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
