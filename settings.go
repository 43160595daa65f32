package httpcache

import "encoding/json"

// Settings is the durable record of a response's cache-relevant metadata,
// keyed by the settings key derived from the request URL. It is written once
// a response passes the storability filter and read back on every
// subsequent request for the same URL to drive revalidation and vary
// projection.
type Settings struct {
	CacheControl  map[string]string `json:"cacheControl,omitempty"`
	Date          *int64            `json:"date,omitempty"`
	Expires       *int64            `json:"expires,omitempty"`
	LastModified  *int64            `json:"lastModified,omitempty"`
	ETag          string            `json:"etag,omitempty"`
	Vary          []string          `json:"vary,omitempty"`
}

// marshalSettings serializes s to its wire form.
func marshalSettings(s *Settings) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalSettings parses the wire form produced by marshalSettings.
// Malformed JSON is the caller's signal to treat the entry as absent; it is
// never surfaced as a request error. A bare 0 for date, expires or
// lastModified is read as absent, the same as an omitted field.
func unmarshalSettings(raw string) (*Settings, error) {
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	for _, p := range []**int64{&s.Date, &s.Expires, &s.LastModified} {
		if *p != nil && **p == 0 {
			*p = nil
		}
	}
	if s.CacheControl == nil {
		s.CacheControl = map[string]string{}
	}
	return &s, nil
}
