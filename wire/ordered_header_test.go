package wire_test

import (
	"strings"
	"testing"

	"github.com/soheilmv/mvnet/wire"
)

func TestOrderedHeaderPreservesInsertionOrder(t *testing.T) {
	h := &wire.OrderedHeader{}
	h.Add("Host", "example.com")
	h.Add("Accept", "*/*")
	h.Add("X-Custom", "1")

	entries := h.Entries()
	want := []string{"Host", "Accept", "X-Custom"}
	for i, e := range entries {
		if e.Key != want[i] {
			t.Errorf("entries[%d].Key = %q, want %q", i, e.Key, want[i])
		}
	}
}

func TestOrderedHeaderSetReplacesInPlace(t *testing.T) {
	h := &wire.OrderedHeader{}
	h.Add("A", "1")
	h.Add("B", "2")
	h.Set("A", "3")

	if h.Get("A") != "3" {
		t.Errorf("Get(A) = %q, want 3", h.Get("A"))
	}
	entries := h.Entries()
	if len(entries) != 2 || entries[0].Key != "A" {
		t.Errorf("Set should replace in place, got %+v", entries)
	}
}

func TestOrderedHeaderDel(t *testing.T) {
	h := &wire.OrderedHeader{}
	h.Add("A", "1")
	h.Add("B", "2")
	h.Del("A")
	if h.Has("A") {
		t.Error("expected A to be removed")
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestOrderedHeaderWriteTo(t *testing.T) {
	h := &wire.OrderedHeader{}
	h.Add("Host", "example.com")
	h.Add("Accept", "*/*")
	var b strings.Builder
	h.WriteTo(&b)
	want := "Host: example.com\r\nAccept: */*\r\n"
	if b.String() != want {
		t.Errorf("WriteTo() = %q, want %q", b.String(), want)
	}
}

func TestOrderedHeaderAppendFromOverlays(t *testing.T) {
	base := &wire.OrderedHeader{}
	base.Add("Host", "example.com")
	base.Add("Connection", "close")

	overlay := &wire.OrderedHeader{}
	overlay.Add("Connection", "keep-alive")
	overlay.Add("X-Extra", "1")

	base.AppendFrom(overlay)
	if base.Get("Connection") != "keep-alive" {
		t.Errorf("Connection = %q, want keep-alive", base.Get("Connection"))
	}
	if base.Get("X-Extra") != "1" {
		t.Error("expected X-Extra to be appended")
	}
}
