// Package fingerprint bundles the TLS and header signals that, taken
// together, make a request indistinguishable from a real browser's: a
// uTLS ClientHelloID (driving GREASE, cipher order, and extension order
// through tlsupgrade's uTLS path) and a preset OrderedHeader that the
// request framer writes after its own 8-step base headers and before the
// caller's permanent/temporary overlays (spec.md §4.3). Adapted from the teacher's fingerprint.Profile/ChromeProfile and
// client.ChromeOrderedHeaders: the teacher applied a fixed crypto/tls
// CipherSuites list to an http.Transport and merged headers into a plain
// map; here a Profile instead selects a uTLS ClientHelloID (a full
// ClientHelloSpec, not just a cipher order) and seeds wire.OrderedHeader,
// the insertion-ordered header type the rest of the engine uses.
package fingerprint

import (
	utls "github.com/refraction-networking/utls"

	"github.com/soheilmv/mvnet/wire"
)

type headerPair struct{ Key, Value string }

// Profile bundles a uTLS ClientHelloID with a preset header layer and the
// User-Agent that must agree with it.
type Profile struct {
	Name        string
	HelloID     utls.ClientHelloID
	UserAgent   string
	baseHeaders []headerPair
}

// Headers returns a fresh OrderedHeader seeded with this profile's preset
// headers (including User-Agent), in the exact order and casing a real
// client sends them. The request framer overlays these after its own base
// headers (a same-named base header takes the preset's value) and then
// overlays any caller-supplied permanent/temporary headers on top.
func (p *Profile) Headers() *wire.OrderedHeader {
	h := &wire.OrderedHeader{}
	for _, kv := range p.baseHeaders {
		h.Add(kv.Key, kv.Value)
	}
	if p.UserAgent != "" {
		h.Add("User-Agent", p.UserAgent)
	}
	return h
}

// ChromeProfile mimics Google Chrome 120 on Windows via
// utls.HelloChrome_120, carrying the sec-ch-ua/platform/fetch header set
// the teacher's ChromeOrderedHeaders sent.
func ChromeProfile() *Profile {
	return &Profile{
		Name:      "chrome-120",
		HelloID:   utls.HelloChrome_120,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		baseHeaders: []headerPair{
			{"sec-ch-ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`},
			{"sec-ch-ua-mobile", "?0"},
			{"sec-ch-ua-platform", `"Windows"`},
			{"Upgrade-Insecure-Requests", "1"},
			{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"},
			{"sec-fetch-site", "none"},
			{"sec-fetch-mode", "navigate"},
			{"sec-fetch-user", "?1"},
			{"sec-fetch-dest", "document"},
		},
	}
}

// FirefoxProfile mimics Firefox 121 on Windows via utls.HelloFirefox_120.
func FirefoxProfile() *Profile {
	return &Profile{
		Name:      "firefox-121",
		HelloID:   utls.HelloFirefox_120,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		baseHeaders: []headerPair{
			{"Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"},
			{"Upgrade-Insecure-Requests", "1"},
			{"Sec-Fetch-Dest", "document"},
			{"Sec-Fetch-Mode", "navigate"},
			{"Sec-Fetch-Site", "none"},
			{"Sec-Fetch-User", "?1"},
		},
	}
}

// ChromeAutoProfile tracks whatever uTLS considers the latest supported
// Chrome parrot, so the fingerprint doesn't silently become a pinned,
// aging build number.
func ChromeAutoProfile() *Profile {
	p := ChromeProfile()
	p.Name = "chrome-auto"
	p.HelloID = utls.HelloChrome_Auto
	return p
}
