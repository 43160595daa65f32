package httpcache

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// serializeResponse renders resp into the flat format this cache persists:
// a status line, one "Name: value" line per header value, a blank line,
// then the body verbatim. It is deliberately not httputil.DumpResponse —
// the format is fixed by the key/blob contract and must round-trip through
// deserializeResponse exactly.
func serializeResponse(resp *http.Response, body []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/%d.%d %d %s\r\n", resp.ProtoMajor, resp.ProtoMinor, resp.StatusCode, reasonPhrase(resp))

	for name, values := range resp.Header {
		for _, v := range values {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
		}
	}
	b.WriteString("\r\n")
	b.Write(body)
	return b.String()
}

// reasonPhrase extracts the reason phrase from resp.Status ("200 OK" ->
// "OK"), falling back to the standard text for the status code.
func reasonPhrase(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

// deserializeResponse parses the format written by serializeResponse back
// into a status line, headers and body. It splits on the first "\r\n\r\n";
// the status line is split on spaces into exactly three fields; each header
// line is split on the first ':' with both sides trimmed, and lines with an
// empty name or value are skipped.
func deserializeResponse(raw string) (proto string, statusCode int, reason string, header http.Header, body []byte, err error) {
	head, tail, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		return "", 0, "", nil, nil, fmt.Errorf("httpcache: malformed response envelope: no header/body separator")
	}

	scanner := bufio.NewScanner(strings.NewReader(head))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return "", 0, "", nil, nil, fmt.Errorf("httpcache: malformed response envelope: missing status line")
	}

	fields := strings.SplitN(scanner.Text(), " ", 3)
	if len(fields) != 3 {
		return "", 0, "", nil, nil, fmt.Errorf("httpcache: malformed status line: %q", scanner.Text())
	}
	proto = fields[0]
	statusCode, err = strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, "", nil, nil, fmt.Errorf("httpcache: malformed status code: %w", err)
	}
	reason = fields[2]

	header = http.Header{}
	for scanner.Scan() {
		line := scanner.Text()
		name, value, hasColon := strings.Cut(line, ":")
		if !hasColon {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		header.Add(name, value)
	}

	if tail != "" {
		body = []byte(tail)
	}
	return proto, statusCode, reason, header, body, nil
}

// newCachedResponse rebuilds an *http.Response from a deserialized envelope,
// ready to hand back to the caller.
func newCachedResponse(req *http.Request, raw string) (*http.Response, error) {
	proto, statusCode, reason, header, body, err := deserializeResponse(raw)
	if err != nil {
		return nil, err
	}

	major, minor := 1, 1
	if _, e := fmt.Sscanf(proto, "HTTP/%d.%d", &major, &minor); e != nil {
		major, minor = 1, 1
	}

	resp := &http.Response{
		Status:     fmt.Sprintf("%d %s", statusCode, reason),
		StatusCode: statusCode,
		Proto:      proto,
		ProtoMajor: major,
		ProtoMinor: minor,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(string(body))),
		Request:    req,
	}
	resp.ContentLength = int64(len(body))
	return resp, nil
}
