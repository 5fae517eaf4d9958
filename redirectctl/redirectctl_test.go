package redirectctl_test

import (
	"testing"

	"github.com/soheilmv/mvnet/redirectctl"
	"github.com/soheilmv/mvnet/requri"
	"github.com/soheilmv/mvnet/wire"
)

func mustURI(t *testing.T, raw string) *requri.URI {
	t.Helper()
	u, err := requri.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestIsRedirectByStatus(t *testing.T) {
	if !redirectctl.IsRedirect(302, &wire.OrderedHeader{}) {
		t.Error("expected 302 to be a redirect")
	}
	if redirectctl.IsRedirect(200, &wire.OrderedHeader{}) {
		t.Error("expected 200 to not be a redirect")
	}
}

func TestIsRedirectByLocationHeader(t *testing.T) {
	h := &wire.OrderedHeader{}
	h.Add("Location", "https://example.com/")
	if !redirectctl.IsRedirect(200, h) {
		t.Error("expected Location header to signal a redirect even on 200")
	}
}

func TestNextDowngradesMethodOn302(t *testing.T) {
	prev := mustURI(t, "https://a.example/x")
	h := &wire.OrderedHeader{}
	h.Add("Location", "https://b.example/y")

	dec, err := redirectctl.Next(prev, 302, h, 0, 8)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !dec.DowngradeToGET || !dec.DropBody {
		t.Error("expected 302 to downgrade method and drop body")
	}
	if !dec.HostChanged {
		t.Error("expected host change to be detected")
	}
	if dec.NextURI.Host != "b.example" {
		t.Errorf("NextURI.Host = %q", dec.NextURI.Host)
	}
}

func TestNextPreserves307(t *testing.T) {
	prev := mustURI(t, "https://a.example/x")
	h := &wire.OrderedHeader{}
	h.Add("Location", "/y")

	dec, err := redirectctl.Next(prev, 307, h, 0, 8)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dec.DowngradeToGET || dec.DropBody {
		t.Error("expected 307 to preserve method and body")
	}
	if dec.HostChanged {
		t.Error("expected no host change for a relative redirect")
	}
}

func TestNextSurfacesExternalSchemeWithoutFollowing(t *testing.T) {
	prev := mustURI(t, "https://a.example/x")
	h := &wire.OrderedHeader{}
	h.Add("Location", "market://details?id=com.example.app")

	dec, err := redirectctl.Next(prev, 302, h, 0, 8)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !dec.External {
		t.Error("expected a non-http(s) Location to be reported as External")
	}
	if dec.NextURI != nil {
		t.Errorf("expected nil NextURI for an external redirect, got %v", dec.NextURI)
	}
}

func TestNextEnforcesRedirectLimit(t *testing.T) {
	prev := mustURI(t, "https://a.example/x")
	h := &wire.OrderedHeader{}
	h.Add("Location", "/y")

	if _, err := redirectctl.Next(prev, 302, h, 8, 8); err == nil {
		t.Error("expected redirect limit error")
	}
}

func TestApplyHostChangeStripsHostAndOrigin(t *testing.T) {
	perm := &wire.OrderedHeader{}
	perm.Add("Host", "a.example")
	perm.Add("Origin", "https://a.example")
	perm.Add("X-Keep", "1")

	temp := &wire.OrderedHeader{}
	temp.Add("X-Trace", "t1")

	nextPerm, nextTemp := redirectctl.ApplyHostChange(perm, temp, false)
	if nextPerm.Has("Host") || nextPerm.Has("Origin") {
		t.Error("expected Host/Origin to be stripped")
	}
	if !nextPerm.Has("X-Keep") {
		t.Error("expected unrelated permanent headers to survive")
	}
	if nextTemp != nil {
		t.Error("expected temporary headers to be dropped when keepTemporaryHeadersOnRedirect is false")
	}
}

func TestApplyHostChangeKeepsTemporaryWhenConfigured(t *testing.T) {
	temp := &wire.OrderedHeader{}
	temp.Add("X-Trace", "t1")

	_, nextTemp := redirectctl.ApplyHostChange(nil, temp, true)
	if nextTemp == nil || !nextTemp.Has("X-Trace") {
		t.Error("expected temporary headers to survive when keepTemporaryHeadersOnRedirect is true")
	}
}

func TestStripSensitiveOnHostChange(t *testing.T) {
	h := &wire.OrderedHeader{}
	h.Add("Authorization", "Basic xyz")
	h.Add("X-Other", "1")

	stripped := redirectctl.StripSensitiveOnHostChange(h, true)
	if stripped.Has("Authorization") {
		t.Error("expected Authorization to be stripped on host change")
	}
	if !stripped.Has("X-Other") {
		t.Error("expected unrelated headers to survive")
	}

	unchanged := redirectctl.StripSensitiveOnHostChange(h, false)
	if !unchanged.Has("Authorization") {
		t.Error("expected Authorization to survive when host did not change")
	}
}
