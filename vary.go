package httpcache

import (
	"net/http"
	"strings"
)

// varyProjection computes the mapping {h -> request.headerLine(h)} for the
// stored vary list, keyed by lowercased header name. The map itself is
// unordered; KeyFactory.ResponseKey sorts the names before hashing. An
// absent header contributes the empty string. This feeds the response-key
// hash and is what distinguishes Vary-split cache entries.
func varyProjection(h http.Header, vary []string) map[string]string {
	if len(vary) == 0 {
		return nil
	}
	projection := make(map[string]string, len(vary))
	for _, name := range vary {
		lower := strings.ToLower(name)
		projection[lower] = strings.Join(h.Values(http.CanonicalHeaderKey(name)), ", ")
	}
	return projection
}
