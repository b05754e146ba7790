package server

import (
	"net/http"
	"strings"
)

// HeaderRule adds fixed response headers to every request under Prefix.
type HeaderRule struct {
	Prefix  string
	Headers map[string]string
}

// FramingPolicy lets any origin frame the embed page and its assets.
var FramingPolicy = []HeaderRule{
	{
		Prefix: "/embed/",
		Headers: map[string]string{
			"X-Frame-Options":         "ALLOWALL",
			"Content-Security-Policy": "frame-ancestors *",
		},
	},
}

// headerPolicy applies rules by path prefix. The rule table is copied when
// the middleware is built; requests never alter it.
func headerPolicy(rules []HeaderRule) func(http.Handler) http.Handler {
	type compiled struct {
		prefix string
		header http.Header
	}
	table := make([]compiled, 0, len(rules))
	for _, rule := range rules {
		h := make(http.Header, len(rule.Headers))
		for k, v := range rule.Headers {
			h.Set(k, v)
		}
		table = append(table, compiled{prefix: rule.Prefix, header: h})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, rule := range table {
				if !strings.HasPrefix(r.URL.Path, rule.prefix) {
					continue
				}
				for k, vs := range rule.header {
					w.Header()[k] = append([]string(nil), vs...)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
