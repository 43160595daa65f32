package httpcache

import (
	"net/http"
	"strconv"
	"time"
)

// addAgeHeader computes age = now - date from the stored settings' date and,
// if positive, sets an Age header on the outgoing response. Per §4.3 step
// 11, a non-positive age adds nothing — this is a much narrower rule than
// RFC 9111's full apparent_age/corrected_age accounting, which this cache
// does not implement.
func addAgeHeader(resp *http.Response, date *int64, now time.Time) {
	if date == nil {
		return
	}
	age := now.Unix() - *date
	if age <= 0 {
		return
	}
	resp.Header.Set("Age", strconv.FormatInt(age, 10))
}
