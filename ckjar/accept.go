package ckjar

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soheilmv/mvnet/requri"
	"github.com/soheilmv/mvnet/wireerr"
)

// AcceptOptions carries the policy flags the accept path needs from the
// caller (normally threaded through from config.Config).
type AcceptOptions struct {
	EscapeValuesOnReceive      bool
	IgnoreInvalidCookie        bool
	IgnoreSetForExpiredCookies bool
	ExpireBeforeSet            bool
}

const invalidNameChars = " \t\r\n=;,"

func isInvalidCookieName(name string) bool {
	if name == "" || strings.HasPrefix(name, "$") {
		return true
	}
	return strings.ContainsAny(name, invalidNameChars)
}

// ParseSetCookie implements spec.md §4.5's accept path steps 1–4: it
// returns a Cookie ready for the expired/expire-before-set checks (steps
// 5–6, performed by Jar.Accept), or (nil, nil) when the cookie should be
// silently dropped per IgnoreInvalidCookie.
func ParseSetCookie(reqURI *requri.URI, raw string, opt AcceptOptions) (*Cookie, error) {
	filtered := ApplyPreStorageFilters(raw)

	tokens := splitTokens(filtered)
	if len(tokens) == 0 {
		if opt.IgnoreInvalidCookie {
			return nil, nil
		}
		return nil, wireerr.NewInvalidCookie("empty Set-Cookie value")
	}

	name, value, ok := splitPair(tokens[0])
	if !ok || isInvalidCookieName(name) {
		if opt.IgnoreInvalidCookie {
			return nil, nil
		}
		return nil, wireerr.NewInvalidCookie("reserved character or '$'-prefixed cookie name: " + tokens[0])
	}

	if opt.EscapeValuesOnReceive {
		value = url.QueryEscape(value)
	}

	c := &Cookie{Name: name, Value: value}

	var domain, path string
	for _, tok := range tokens[1:] {
		key, val, _ := splitPair(tok)
		switch strings.ToLower(key) {
		case "expires":
			if t, err := parseCookieDate(val); err == nil {
				c.Expiry = clampExpiry(t)
			}
		case "path":
			path = val
		case "domain":
			domain = FilterDomain(val)
		case "secure":
			c.Secure = true
		case "httponly":
			c.HTTPOnly = true
		}
	}

	c.Domain = domain
	c.Path = path

	// Step 4: no domain attribute was provided.
	if c.Domain == "" {
		if c.Path == "" || strings.HasPrefix(c.Path, "/") {
			c.Domain = reqURI.Host
		} else if strings.Contains(c.Path, ".") {
			c.Domain = c.Path
			c.Path = ""
		} else {
			c.Domain = reqURI.Host
		}
	}
	if c.Path == "" {
		c.Path = "/"
	}

	return c, nil
}

// splitTokens splits a Set-Cookie value on ';', dropping empty tokens and
// trimming surrounding whitespace from each.
func splitTokens(raw string) []string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPair splits "key=value" on the first '=' and trims both sides.
// ok is false when no '=' is present (e.g. a bare "secure" flag).
func splitPair(tok string) (key, value string, ok bool) {
	idx := strings.IndexByte(tok, '=')
	if idx == -1 {
		return strings.TrimSpace(tok), "", false
	}
	return strings.TrimSpace(tok[:idx]), strings.TrimSpace(tok[idx+1:]), true
}

// parseCookieDate tries the handful of date layouts real Set-Cookie headers
// use in practice.
func parseCookieDate(val string) (time.Time, error) {
	layouts := []string{
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 02-Jan-2006 15:04:05 MST",
		"Monday, 02-Jan-06 15:04:05 MST",
		time.ANSIC,
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, val); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, lastErr
}
