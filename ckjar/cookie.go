// Package ckjar implements the domain-scoped cookie jar: parsing
// Set-Cookie values, RFC 6265 domain/path matching on send, the
// expire-before-set upsert rule, and a stable length-prefixed
// serialization of the whole jar.
package ckjar

import "time"

// maxExpiry is the clamp spec.md §3 requires: a year-9999 expiry is capped
// to one second before the turn of 9999, avoiding year-9999 overflow in
// downstream parsers.
var maxExpiry = time.Date(9998, time.December, 31, 23, 59, 59, 0, time.UTC)

// Cookie is one stored cookie. Value is stored already escaped if the jar's
// EscapeValuesOnReceive policy is set at accept time.
type Cookie struct {
	Name     string
	Value    string
	Domain   string // with optional leading dot
	Path     string // defaults to "/"
	Expiry   time.Time
	Secure   bool
	HTTPOnly bool
	Expired  bool // tombstone set by expire-before-set or an expired Set-Cookie
}

// hasExpiry reports whether an Expires attribute was present at all (as
// opposed to a session cookie with the zero Time).
func (c *Cookie) hasExpiry() bool { return !c.Expiry.IsZero() }

// isExpiredAt reports whether the cookie is expired relative to now,
// honoring both the tombstone flag and a past Expiry.
func (c *Cookie) isExpiredAt(now time.Time) bool {
	if c.Expired {
		return true
	}
	return c.hasExpiry() && c.Expiry.Before(now)
}

func clampExpiry(t time.Time) time.Time {
	if t.Year() >= 9999 {
		return maxExpiry
	}
	return t
}
