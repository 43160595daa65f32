package httpcache

import (
	"net/http"
	"time"
)

// admittedStatusCodes is the fixed admission set. RFC 7234 permits more
// (404, 410, 206...); the source this cache is modeled on only ever admitted
// 200 and 301, and that choice is preserved rather than extended.
var admittedStatusCodes = map[int]bool{
	http.StatusOK:             true,
	http.StatusMovedPermanently: true,
}

// storabilityResult is the outcome of running a response through the
// admission rules, including the TTL it should be stored with.
type storabilityResult struct {
	storable bool
	private  bool
	ttl      time.Duration
}

// evaluateStorability implements the admission rules in full: status set,
// no-store (both directions), Vary:*, TTL > 0, private-scope consistency
// and the size ceiling. now and private are supplied by the caller because
// private scope is a request-dependent test resolved by the Decision Engine
// before storage is attempted.
func evaluateStorability(req *http.Request, resp *http.Response, reqCC, respCC directives, vary []string, private bool, hasPrivateToken bool, serializedSize int, cfg *config, now time.Time) storabilityResult {
	if !admittedStatusCodes[resp.StatusCode] {
		return storabilityResult{}
	}
	if reqCC.has("no-store") || respCC.has("no-store") {
		return storabilityResult{}
	}
	for _, v := range vary {
		if v == "*" {
			return storabilityResult{}
		}
	}
	if private && !hasPrivateToken {
		return storabilityResult{}
	}

	ttl := computeTTL(respCC, resp.Header, cfg.maxTTL, now)
	if ttl <= 0 {
		return storabilityResult{}
	}

	if cfg.maxCacheItemSize > 0 && serializedSize > cfg.maxCacheItemSize {
		return storabilityResult{}
	}

	return storabilityResult{storable: true, private: private, ttl: ttl}
}

// computeTTL implements the TTL derivation formula in §4.5 exactly:
// maxAge from Cache-Control (else the maxTtl ceiling), headerExpires from a
// parseable Expires header (else now+maxAge), date from a parseable Date
// header (else now), calculatedExpires = date+maxAge, effectiveExpires =
// min(calculatedExpires, headerExpires), ttl = clamp(effectiveExpires-now, 0, maxTtl).
func computeTTL(respCC directives, header http.Header, maxTTL time.Duration, now time.Time) time.Duration {
	maxAge := maxTTL
	if n, ok := respCC.intValue("max-age"); ok {
		maxAge = time.Duration(n) * time.Second
	}

	headerExpires := now.Add(maxAge)
	if epoch, ok := parseHTTPDate(header.Get("Expires")); ok {
		headerExpires = time.Unix(epoch, 0)
	}

	date := now
	if epoch, ok := parseHTTPDate(header.Get("Date")); ok {
		date = time.Unix(epoch, 0)
	}

	calculatedExpires := date.Add(maxAge)

	effectiveExpires := calculatedExpires
	if headerExpires.Before(effectiveExpires) {
		effectiveExpires = headerExpires
	}

	ttl := effectiveExpires.Sub(now)
	if ttl < 0 {
		ttl = 0
	}
	if ttl > maxTTL {
		ttl = maxTTL
	}
	return ttl
}
