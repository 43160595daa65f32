// Package httpcache provides a http.RoundTripper implementation that works as
// an RFC 7234 compliant cache for HTTP responses, consuming a pluggable
// Storage backend and (optionally) a pluggable KeyFactory.
package httpcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client is the single operation this cache requires of its downstream
// transport. *http.Client already satisfies it; nothing else needs wrapping.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// admissionRecorder is an optional Storage capability for observing
// storability admission decisions. A rejected response never reaches
// Storage.Set, so this is the only seam where a decorator such as
// metrics/prometheus.InstrumentedStorage can see rejections too. Storage
// implementations that don't care about admission metrics simply don't
// implement it, and the type assertion at the call site is a no-op for them.
type admissionRecorder interface {
	RecordAdmission(admitted bool)
}

// Transport is an http.RoundTripper that serves GET requests from a
// Storage-backed cache when the stored settings say it is fresh, and
// otherwise forwards to the wrapped Client and attempts admission of the
// response it gets back.
type Transport struct {
	cfg *config
}

// NewTransport builds a Transport from the given options. WithStorage is
// required; every other option has a default.
func NewTransport(opts ...Option) (*Transport, error) {
	cfg := newConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.storage == nil {
		return nil, fmt.Errorf("httpcache: storage is required (use WithStorage)")
	}
	if cfg.client == nil {
		cfg.client = http.DefaultClient
	}
	return &Transport{cfg: cfg}, nil
}

// Client returns an *http.Client whose transport is this cache.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

var bypassHeaders = []string{
	"If-None-Match", "If-Match", "If-Range", "If-Modified-Since", "If-Unmodified-Since",
}

// isBypass implements the Gatekeeper: protocol 1.0/1, non-GET, Range or
// Content-Range, or any caller-driven conditional header takes the request
// straight to origin.
func isBypass(req *http.Request) bool {
	if req.Proto == "HTTP/1.0" || req.Proto == "HTTP/1" || (req.ProtoMajor == 1 && req.ProtoMinor == 0) {
		return true
	}
	if req.Method != http.MethodGet {
		return true
	}
	if req.Header.Get("Range") != "" || req.Header.Get("Content-Range") != "" {
		return true
	}
	for _, h := range bypassHeaders {
		if req.Header.Get(h) != "" {
			return true
		}
	}
	return false
}

// withoutPrivateHeader returns a clone of req (with its own copy of the
// headers, so the caller's request is untouched) with the private-scope
// header removed. The private-scope header must never reach origin.
func (t *Transport) withoutPrivateHeader(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Del(t.cfg.privateCacheKeyHeader)
	return clone
}

// RoundTrip implements http.RoundTripper: Gatekeeper, then the Decision
// Engine described in the package's design notes.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if isBypass(req) {
		return t.cfg.client.Do(t.withoutPrivateHeader(req))
	}
	return t.decide(req)
}

// decide is the 11-step Decision Engine. It is evaluated top to bottom; the
// first terminal action returns.
func (t *Transport) decide(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cfg := t.cfg
	now := time.Now()

	privateToken := req.Header.Get(cfg.privateCacheKeyHeader)
	hasPrivateToken := privateToken != ""
	fwd := t.withoutPrivateHeader(req)

	// 1. Settings lookup.
	settingsKey := cfg.keyFactory.SettingsKey(req.URL)
	raw, ok, err := cfg.storage.Get(ctx, settingsKey)
	if err != nil {
		GetLogger().Debug("httpcache: settings read failed, treating as miss", "key", settingsKey, "error", err)
		ok = false
	}
	if !ok {
		return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
	}

	// 2. Parse settings.
	settings, err := unmarshalSettings(raw)
	if err != nil {
		GetLogger().Debug("httpcache: malformed settings entry, treating as absent", "key", settingsKey, "error", err)
		return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
	}

	// 3. no-store in stored settings.
	if settings.CacheControl["no-store"] == "true" {
		return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
	}

	// 4. Vary: * in stored settings.
	for _, v := range settings.Vary {
		if v == "*" {
			return cfg.client.Do(fwd)
		}
	}

	// 5. Absolute expiry check.
	if settings.Expires != nil && *settings.Expires < now.Unix() {
		return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
	}

	// 6. Request-side freshness constraints.
	reqCC := parseCacheControl(req.Header)
	if settings.Date != nil {
		if maxAge, hasMaxAge := reqCC.intValue("max-age"); hasMaxAge {
			if now.Unix()-*settings.Date > int64(maxAge) {
				return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
			}
		}
		if minFresh, hasMinFresh := reqCC.intValue("min-fresh"); hasMinFresh {
			if storedMaxAge, hasStoredMaxAge := ccIntValue(settings.CacheControl, "max-age"); hasStoredMaxAge {
				if storedMaxAge < (now.Unix()-*settings.Date)+int64(minFresh) {
					return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
				}
			}
		}
	}

	// 7. Private-scope test.
	private := settings.CacheControl["private"] == "true" || req.Header.Get("Authorization") != ""
	if private && !hasPrivateToken {
		return cfg.client.Do(fwd)
	}
	effectiveToken := ""
	if private {
		effectiveToken = privateToken
	}

	// 8. Vary projection.
	varyMap := varyProjection(req.Header, settings.Vary)

	// 9. Mandatory revalidation.
	if settings.CacheControl["must-revalidate"] == "true" {
		revalReq := fwd.Clone(ctx)
		if settings.ETag != "" {
			revalReq.Header.Set("If-None-Match", settings.ETag)
		}
		if settings.LastModified != nil {
			revalReq.Header.Set("If-Modified-Since", formatHTTPDate(*settings.LastModified))
		}
		resp, err := cfg.client.Do(revalReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusNotModified {
			return t.storeResponse(ctx, req, resp, hasPrivateToken, privateToken)
		}
		resp.Body.Close() //nolint:errcheck // 304 has no body to preserve
	}

	// 10. Cache lookup.
	responseKey := cfg.keyFactory.ResponseKey(req.URL, varyMap, effectiveToken)
	body, ok, err := cfg.storage.Get(ctx, responseKey)
	if err != nil {
		GetLogger().Debug("httpcache: response read failed, treating as miss", "key", responseKey, "error", err)
		ok = false
	}
	if !ok {
		return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
	}

	// 11. Deserialize and return.
	resp, err := newCachedResponse(req, body)
	if err != nil {
		GetLogger().Debug("httpcache: malformed response envelope, treating as miss", "key", responseKey, "error", err)
		return t.forwardAndStore(ctx, fwd, req, hasPrivateToken, privateToken)
	}
	addAgeHeader(resp, settings.Date, now)
	return resp, nil
}

// forwardAndStore forwards fwd to origin and attempts admission of the
// result against origReq, the request the caller actually made.
func (t *Transport) forwardAndStore(ctx context.Context, fwd, origReq *http.Request, hasPrivateToken bool, privateToken string) (*http.Response, error) {
	resp, err := t.cfg.client.Do(fwd)
	if err != nil {
		return nil, err
	}
	return t.storeResponse(ctx, origReq, resp, hasPrivateToken, privateToken)
}

// storeResponse drains resp's body, runs the Storability Filter, writes the
// settings+response blobs on admission, and hands back a response carrying
// a fresh, replayable body.
func (t *Transport) storeResponse(ctx context.Context, origReq *http.Request, resp *http.Response, hasPrivateToken bool, privateToken string) (*http.Response, error) {
	cfg := t.cfg

	bodyBytes, err := io.ReadAll(resp.Body)
	resp.Body.Close() //nolint:errcheck // drained already
	if err != nil {
		return nil, err
	}

	respCC := parseCacheControl(resp.Header)
	reqCC := parseCacheControl(origReq.Header)
	vary := parseVary(resp.Header)
	private := respCC.has("private") || origReq.Header.Get("Authorization") != ""

	serialized := serializeResponse(resp, bodyBytes)
	now := time.Now()
	result := evaluateStorability(origReq, resp, reqCC, respCC, vary, private, hasPrivateToken, len(serialized), cfg, now)

	if recorder, ok := cfg.storage.(admissionRecorder); ok {
		recorder.RecordAdmission(result.storable)
	}

	if result.storable {
		var effectiveToken string
		if private {
			effectiveToken = privateToken
		}

		settings := buildSettings(respCC, resp.Header, vary, now, result.ttl)
		if settingsRaw, mErr := marshalSettings(settings); mErr == nil {
			if sErr := cfg.storage.Set(ctx, cfg.keyFactory.SettingsKey(origReq.URL), settingsRaw, result.ttl); sErr != nil {
				GetLogger().Debug("httpcache: settings write failed", "error", sErr)
			}
		} else {
			GetLogger().Debug("httpcache: settings encode failed", "error", mErr)
		}

		varyMap := varyProjection(origReq.Header, vary)
		responseKey := cfg.keyFactory.ResponseKey(origReq.URL, varyMap, effectiveToken)
		if sErr := cfg.storage.Set(ctx, responseKey, serialized, result.ttl); sErr != nil {
			GetLogger().Debug("httpcache: response write failed", "error", sErr)
		}
	}

	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	resp.ContentLength = int64(len(bodyBytes))
	return resp, nil
}

// buildSettings derives the durable Settings record for a response that
// just passed (or will be tested against) the Storability Filter.
// Expires is stored as the computed effectiveExpires (now+ttl), not the raw
// Expires header, so the absolute-expiry check in decide's step 5 is a
// plain integer comparison against the value admission already derived.
func buildSettings(respCC directives, header http.Header, vary []string, now time.Time, ttl time.Duration) *Settings {
	s := &Settings{
		CacheControl: map[string]string(respCC),
		Vary:         vary,
		ETag:         header.Get("ETag"),
	}

	date := now.Unix()
	if epoch, ok := parseHTTPDate(header.Get("Date")); ok {
		date = epoch
	}
	s.Date = &date

	expires := now.Add(ttl).Unix()
	s.Expires = &expires

	if epoch, ok := parseHTTPDate(header.Get("Last-Modified")); ok {
		s.LastModified = &epoch
	}

	return s
}

// ccIntValue parses an integer directive out of a stored settings
// Cache-Control map, which round-trips through JSON as plain strings.
func ccIntValue(cc map[string]string, name string) (int64, bool) {
	v, ok := cc[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, true
	}
	return n, true
}
