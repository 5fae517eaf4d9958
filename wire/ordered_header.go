// Package wire implements the hand-rolled HTTP/1.1 wire format: ordered
// header assembly, the request-line/header/body writer, and the
// ReceiverHelper response reader with its body-framing decision tree.
package wire

import "strings"

// headerEntry stores a single header key/value pair with its original
// casing, exactly as the caller supplied it.
type headerEntry struct {
	key   string
	value string
}

// OrderedHeader is an insertion-ordered, case-preserving header list.
// Unlike net/http.Header (a map[string][]string, therefore unordered),
// OrderedHeader keeps entries in a slice so the framer writes headers to
// the wire in exactly the order spec.md §4.3 assembles them — essential
// both for deterministic tests and for matching a real browser's header
// order when a fingerprint.Profile seeds it.
//
// OrderedHeader is not safe for concurrent use; each outbound request
// builds and owns its own instance before a single goroutine writes it.
type OrderedHeader struct {
	entries []headerEntry
}

// Add appends key/value, preserving key's casing. Repeated calls with the
// same key (case-insensitively) produce multiple entries.
func (h *OrderedHeader) Add(key, value string) {
	h.entries = append(h.entries, headerEntry{key: key, value: value})
}

// Set replaces the first entry matching key (case-insensitively) with the
// new value, removing any later duplicates; behaves like Add if key is not
// already present.
func (h *OrderedHeader) Set(key, value string) {
	canon := strings.ToLower(key)
	replaced := false
	out := h.entries[:0]
	for _, e := range h.entries {
		if strings.ToLower(e.key) == canon {
			if !replaced {
				out = append(out, headerEntry{key: key, value: value})
				replaced = true
			}
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, headerEntry{key: key, value: value})
	}
	h.entries = out
}

// Del removes every entry matching key (case-insensitively).
func (h *OrderedHeader) Del(key string) {
	canon := strings.ToLower(key)
	out := h.entries[:0]
	for _, e := range h.entries {
		if strings.ToLower(e.key) != canon {
			out = append(out, e)
		}
	}
	h.entries = out
}

// Get returns the value of the first entry matching key (case-insensitively),
// or "" if absent.
func (h *OrderedHeader) Get(key string) string {
	canon := strings.ToLower(key)
	for _, e := range h.entries {
		if strings.ToLower(e.key) == canon {
			return e.value
		}
	}
	return ""
}

// Has reports whether any entry matches key (case-insensitively).
func (h *OrderedHeader) Has(key string) bool {
	canon := strings.ToLower(key)
	for _, e := range h.entries {
		if strings.ToLower(e.key) == canon {
			return true
		}
	}
	return false
}

// Len returns the number of entries, including duplicates.
func (h *OrderedHeader) Len() int { return len(h.entries) }

// Clone returns a shallow, independent copy of h.
func (h *OrderedHeader) Clone() *OrderedHeader {
	c := &OrderedHeader{entries: make([]headerEntry, len(h.entries))}
	copy(c.entries, h.entries)
	return c
}

// AppendFrom overlays every entry of other onto h, in other's order, with
// Set semantics: a key already in h (case-insensitively) has its value
// replaced in place, a new key is appended. Used to overlay the
// fingerprint preset and the permanent and temporary header maps (spec.md
// §4.3) on top of the base headers computed in steps 1–8.
func (h *OrderedHeader) AppendFrom(other *OrderedHeader) {
	for _, e := range other.entries {
		h.Set(e.key, e.value)
	}
}

// WriteTo serializes h as CRLF-terminated "Key: value" lines (no trailing
// blank line — the caller appends the header/body separator).
func (h *OrderedHeader) WriteTo(b *strings.Builder) {
	for _, e := range h.entries {
		b.WriteString(e.key)
		b.WriteString(": ")
		b.WriteString(e.value)
		b.WriteString("\r\n")
	}
}

// Entries returns a read-only view of the (key, value) pairs in order, for
// callers (the redirect controller, tests) that need to walk the full list.
func (h *OrderedHeader) Entries() []struct{ Key, Value string } {
	out := make([]struct{ Key, Value string }, len(h.entries))
	for i, e := range h.entries {
		out[i] = struct{ Key, Value string }{e.key, e.value}
	}
	return out
}
