/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: httpmsg.go
Description: Byte and range helpers for raw HTTP messages captured by an intercepting
proxy. Decodes message bytes to text one byte per rune, locates the body offset, reads
the response status code and parses the request line and Host header into a target URL.
*/

package httpmsg

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedRequest is returned when raw bytes cannot be read as an HTTP request
var ErrMalformedRequest = errors.New("malformed http request")

// ErrMalformedResponse is returned when raw bytes cannot be read as an HTTP response
var ErrMalformedResponse = errors.New("malformed http response")

// RequestInfo is the subset of a request the template generator needs
type RequestInfo struct {
	Method string   // Request method from the request line
	Target string   // Request target as written on the request line
	Host   string   // Host header value (or URL host)
	URL    *url.URL // Absolute URL of the request
}

// Decode converts message bytes to text.
// Every byte maps to exactly one rune (ISO-8859-1), so a byte offset into the
// message is also a rune offset into the decoded text.
func Decode(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// Encode is the inverse of Decode. Runes outside ISO-8859-1 become '?'.
func Encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	return out
}

// BodyOffset returns the offset of the first body byte, or len(msg) when
// the message has no header terminator.
func BodyOffset(msg []byte) int {
	if i := bytes.Index(msg, []byte("\r\n\r\n")); i >= 0 {
		return i + 4
	}
	if i := bytes.Index(msg, []byte("\n\n")); i >= 0 {
		return i + 2
	}
	return len(msg)
}

// StatusCode reads the numeric status from a response status line
func StatusCode(resp []byte) (int, error) {
	line := firstLine(resp)
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/") {
		return 0, fmt.Errorf("%w: bad status line %q", ErrMalformedResponse, line)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil || code < 100 || code > 999 {
		return 0, fmt.Errorf("%w: bad status code %q", ErrMalformedResponse, parts[1])
	}
	return code, nil
}

// ParseRequest reads the request line and Host header of a raw request.
// rawURL, when set, is the URL reported by the capturing tool and takes
// precedence over the Host header. secure selects https when the URL has
// to be rebuilt from the Host header.
func ParseRequest(raw []byte, rawURL string, secure bool) (*RequestInfo, error) {
	line := firstLine(raw)
	parts := strings.Fields(line)
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "HTTP/") {
		return nil, fmt.Errorf("%w: bad request line %q", ErrMalformedRequest, line)
	}

	info := &RequestInfo{
		Method: parts[0],
		Target: parts[1],
		Host:   headerValue(raw, "Host"),
	}

	switch {
	case rawURL != "":
		u, err := parseAbsolute(rawURL)
		if err != nil {
			return nil, err
		}
		info.URL = u
	case strings.HasPrefix(info.Target, "http://") || strings.HasPrefix(info.Target, "https://"):
		u, err := parseAbsolute(info.Target)
		if err != nil {
			return nil, err
		}
		info.URL = u
	default:
		if info.Host == "" {
			return nil, fmt.Errorf("%w: missing Host header", ErrMalformedRequest)
		}
		scheme := "http"
		if secure {
			scheme = "https"
		}
		u, err := parseAbsolute(scheme + "://" + info.Host + info.Target)
		if err != nil {
			return nil, err
		}
		info.URL = u
	}

	if info.Host == "" {
		info.Host = info.URL.Host
	}
	return info, nil
}

// RootURL strips path, query and fragment: scheme://host[:port]/
func RootURL(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q is not absolute", ErrMalformedRequest, raw)
	}
	return u, nil
}

func firstLine(msg []byte) string {
	if i := bytes.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimRight(string(msg), "\r")
}

// headerValue returns the first header with the given name, case-insensitive
func headerValue(msg []byte, name string) string {
	head := msg[:BodyOffset(msg)]
	lines := strings.Split(string(head), "\n")
	for _, l := range lines[1:] {
		l = strings.TrimRight(l, "\r")
		k, v, ok := strings.Cut(l, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
