package httpcache

import (
	"math"
	"net/http"
	"strconv"
	"strings"
)

// directives is a parsed Cache-Control header: directive name (lowercased)
// to its value, trimmed and stripped of surrounding quotes (integer
// directives are also clamped). Flag directives (no "=") are recorded with
// value "true".
type directives map[string]string

// integerDirectives coerce their value via base-10 parse; non-numeric values
// become 0 rather than being dropped, per the Directive Parser design.
var integerDirectives = map[string]bool{
	"max-age":   true,
	"s-maxage":  true,
	"max-stale": true,
	"min-fresh": true,
}

// parseCacheControl tokenizes a Cache-Control header value, splitting on ","
// only outside double-quoted regions so that directives like
// private="X-Secret" survive intact.
func parseCacheControl(h http.Header) directives {
	d := directives{}
	for _, raw := range splitUnquoted(h.Get("Cache-Control"), ',') {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			continue
		}
		name, value, hasValue := strings.Cut(tok, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !hasValue {
			d[name] = "true"
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"`)
		if integerDirectives[name] {
			value = clampIntegerDirective(value)
		}
		d[name] = value
	}
	return d
}

// clampIntegerDirective parses value as a base-10 integer and clamps it to
// [0, math.MaxInt32], the range this cache's integer directives are allowed
// to carry. A non-numeric value clamps to "0", matching the coercion
// integerDirectives already documents.
func clampIntegerDirective(value string) string {
	n, err := strconv.Atoi(value)
	if err != nil {
		return "0"
	}
	switch {
	case n < 0:
		return "0"
	case n > math.MaxInt32:
		return strconv.Itoa(math.MaxInt32)
	default:
		return strconv.Itoa(n)
	}
}

// intValue returns the parsed integer form of an integer directive and
// whether it was present at all.
func (d directives) intValue(name string) (int, bool) {
	v, ok := d[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true
	}
	return n, true
}

func (d directives) has(name string) bool {
	_, ok := d[name]
	return ok
}

// splitUnquoted splits s on sep, treating any run between unescaped double
// quotes as a single region that is never split. Implemented as a two-state
// machine (in-quotes, not-in-quotes) rather than a regex.
func splitUnquoted(s string, sep byte) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// parseVary concatenates multi-valued Vary header field-values, tokenizes
// with the quote-aware splitter, trims and lowercases each token, and
// deduplicates preserving first occurrence. A bare "*" short-circuits to
// []string{"*"}.
func parseVary(h http.Header) []string {
	values := h.Values("Vary")
	if len(values) == 0 {
		return nil
	}
	joined := strings.Join(values, ",")

	seen := make(map[string]bool)
	var out []string
	for _, raw := range splitUnquoted(joined, ',') {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		if tok == "*" {
			return []string{"*"}
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
