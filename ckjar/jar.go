package ckjar

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soheilmv/mvnet/requri"
)

// jarKey identifies a stored cookie by (domain, path, name) as spec.md §3
// requires.
type jarKey struct {
	domain string
	path   string
	name   string
}

// Jar is a domain-scoped cookie store. The zero value is not usable; use
// New. A *Jar may be shared across requests/goroutines: all mutation and
// matching goes through the mutex.
type Jar struct {
	mu      sync.Mutex
	cookies map[jarKey]*Cookie
	opt     AcceptOptions
}

// New creates an empty Jar governed by opt.
func New(opt AcceptOptions) *Jar {
	return &Jar{cookies: make(map[jarKey]*Cookie), opt: opt}
}

func keyFor(c *Cookie) jarKey {
	return jarKey{domain: strings.ToLower(c.Domain), path: c.Path, name: c.Name}
}

// Accept parses and stores a raw Set-Cookie value observed on a response to
// reqURI, applying spec.md §4.5's accept-path steps 1–6 in full (parsing via
// ParseSetCookie, then the expired-drop and expire-before-set rules here).
func (j *Jar) Accept(reqURI *requri.URI, raw string) error {
	c, err := ParseSetCookie(reqURI, raw, j.opt)
	if err != nil {
		return err
	}
	if c == nil {
		return nil // silently ignored invalid cookie
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	// Step 5: drop already-expired cookies when so configured.
	if j.opt.IgnoreSetForExpiredCookies && c.isExpiredAt(time.Now()) {
		return nil
	}

	// Step 6: expire-before-set — mark any existing cookie with the same
	// (effective_host, name) expired before inserting the new one.
	if j.opt.ExpireBeforeSet {
		for k, existing := range j.cookies {
			if k.name == c.Name && strings.EqualFold(k.domain, c.Domain) {
				existing.Expired = true
			}
		}
	}

	j.cookies[keyFor(c)] = c
	return nil
}

// Upsert inserts or replaces c directly (bypassing Set-Cookie parsing),
// applying the same expire-before-set semantics as Accept. Useful for
// programmatic cookie injection and for deserialization.
func (j *Jar) Upsert(c Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.opt.ExpireBeforeSet {
		for k, existing := range j.cookies {
			if k.name == c.Name && strings.EqualFold(k.domain, c.Domain) {
				existing.Expired = true
			}
		}
	}
	stored := c
	j.cookies[keyFor(&stored)] = &stored
}

// domainMatch implements the RFC 6265 domain-match rule: host equals domain,
// or domain has a leading dot and host ends with ".<dom-without-dot>".
func domainMatch(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	if strings.HasPrefix(domain, ".") {
		suffix := domain // includes leading dot
		return strings.HasSuffix(host, suffix) || host == domain[1:]
	}
	return host == domain
}

func pathMatch(cookiePath, reqPath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	if len(reqPath) == len(cookiePath) {
		return true
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

// Match returns every non-expired cookie whose domain domain-matches u's
// host, whose path prefixes u's path, and whose Secure flag is honored by
// u's scheme — a consistent snapshot taken under the jar's lock, in a
// fixed order (see sortMatches) so repeated calls against an unchanged
// jar always produce byte-identical Cookie header output (I3).
func (j *Jar) Match(u *requri.URI) []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	var out []Cookie
	for _, c := range j.cookies {
		if c.isExpiredAt(now) {
			continue
		}
		if !domainMatch(u.Host, c.Domain) {
			continue
		}
		if !pathMatch(c.Path, u.Path) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		out = append(out, *c)
	}
	sortMatches(out)
	return out
}

// sortMatches orders cookies the way RFC 6265 §5.4 recommends sending
// them: longer paths first. Map iteration order is otherwise undefined,
// so ties (equal path length) are broken on domain then name, a stable
// key independent of insertion order, rather than on a creation
// timestamp this jar doesn't track.
func sortMatches(cookies []Cookie) {
	sort.SliceStable(cookies, func(i, k int) bool {
		a, b := cookies[i], cookies[k]
		if len(a.Path) != len(b.Path) {
			return len(a.Path) > len(b.Path)
		}
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		return a.Name < b.Name
	})
}

// FormatHeader renders the matching cookies for u as Cookie header value(s)
// per the send path: one combined "k1=v1; k2=v2" string when singleHeader
// is true, or one "k=v" string per cookie otherwise. Values are
// URL-unescaped first when unescapeOnSend is true.
func (j *Jar) FormatHeader(u *requri.URI, singleHeader, unescapeOnSend bool) []string {
	matches := j.Match(u)
	if len(matches) == 0 {
		return nil
	}

	pairs := make([]string, 0, len(matches))
	for _, c := range matches {
		v := c.Value
		if unescapeOnSend {
			if unescaped, err := url.QueryUnescape(v); err == nil {
				v = unescaped
			}
		}
		pairs = append(pairs, c.Name+"="+v)
	}

	if singleHeader {
		return []string{strings.Join(pairs, "; ")}
	}
	return pairs
}

// All returns a snapshot of every cookie currently stored, for
// serialization.
func (j *Jar) All() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, *c)
	}
	return out
}

// Options returns the jar's accept-path policy flags, for serialization.
func (j *Jar) Options() AcceptOptions {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.opt
}
