package upstream

import (
	"net/url"
	"strings"
)

// componentReplacer turns QueryEscape output into encodeURIComponent form:
// spaces as %20 and the marks ! ' ( ) * left as is.
var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent percent-encodes s for use as a single URL path segment or
// query value. Only ASCII letters, digits and - _ . ! ~ * ' ( ) are kept.
func EscapeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}
