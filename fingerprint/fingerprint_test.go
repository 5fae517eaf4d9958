package fingerprint_test

import (
	"testing"

	utls "github.com/refraction-networking/utls"

	"github.com/soheilmv/mvnet/fingerprint"
)

func TestChromeProfileHeadersIncludeUserAgentAndOrder(t *testing.T) {
	p := fingerprint.ChromeProfile()
	h := p.Headers()

	entries := h.Entries()
	if len(entries) == 0 {
		t.Fatal("expected non-empty header set")
	}
	if entries[0].Key != "sec-ch-ua" {
		t.Errorf("first header = %q, want sec-ch-ua", entries[0].Key)
	}
	if h.Get("User-Agent") == "" {
		t.Error("expected User-Agent to be present")
	}
	if p.HelloID != utls.HelloChrome_120 {
		t.Error("expected ChromeProfile to select HelloChrome_120")
	}
}

func TestFirefoxProfileDistinctFromChrome(t *testing.T) {
	c := fingerprint.ChromeProfile()
	f := fingerprint.FirefoxProfile()
	if c.HelloID == f.HelloID {
		t.Error("expected distinct ClientHelloIDs between profiles")
	}
	if c.Headers().Get("User-Agent") == f.Headers().Get("User-Agent") {
		t.Error("expected distinct User-Agent strings")
	}
}

func TestChromeAutoProfileUsesAutoHelloID(t *testing.T) {
	p := fingerprint.ChromeAutoProfile()
	if p.HelloID != utls.HelloChrome_Auto {
		t.Error("expected ChromeAutoProfile to select HelloChrome_Auto")
	}
}

func TestHeadersReturnsFreshCopyEachCall(t *testing.T) {
	p := fingerprint.ChromeProfile()
	h1 := p.Headers()
	h1.Set("sec-ch-ua", "mutated")

	h2 := p.Headers()
	if h2.Get("sec-ch-ua") == "mutated" {
		t.Error("expected Headers() to return an independent header set each call")
	}
}
