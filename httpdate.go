package httpcache

import "time"

// imfFixdate is the sole HTTP-date form this cache understands: RFC 7231's
// IMF-fixdate, e.g. "Sun, 06 Nov 1994 08:49:37 GMT". The teacher's RFC1123
// fallback and asctime/RFC850 leniency are deliberately not carried forward.
const imfFixdate = "Mon, 02 Jan 2006 15:04:05 GMT"

// parseHTTPDate parses an IMF-fixdate string to epoch seconds. ok is false
// for any other form, including the empty string.
func parseHTTPDate(s string) (epoch int64, ok bool) {
	if s == "" {
		return 0, false
	}
	t, err := time.ParseInLocation(imfFixdate, s, time.UTC)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

// formatHTTPDate renders epoch seconds as an IMF-fixdate string, used when
// building revalidation requests from a stored lastModified.
func formatHTTPDate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(imfFixdate)
}
