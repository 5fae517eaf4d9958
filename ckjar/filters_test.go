package ckjar_test

import (
	"testing"

	"github.com/soheilmv/mvnet/ckjar"
)

func TestFilterDomain(t *testing.T) {
	cases := map[string]string{
		".x":           "x",
		".example.com": ".example.com",
		"":             "",
		"   ":          "",
		"example.com":  "example.com",
	}
	for in, want := range cases {
		if got := ckjar.FilterDomain(in); got != want {
			t.Errorf("FilterDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterRepairInvalidExpireYear(t *testing.T) {
	in := "expires=Fri, 31 Dec 9999 23:59:59 GMT"
	got := ckjar.FilterRepairInvalidExpireYear(in)
	want := "expires=Fri, 31 Dec 9998 23:59:59 GMT"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	// Only the one digit should differ.
	if len(got) != len(in) {
		t.Fatalf("length changed: %d vs %d", len(got), len(in))
	}
	diffs := 0
	for i := range got {
		if got[i] != in[i] {
			diffs++
		}
	}
	if diffs != 1 {
		t.Errorf("expected exactly 1 changed byte, got %d", diffs)
	}
}

func TestFilterEscapeTrailingComma(t *testing.T) {
	cases := map[string]string{
		"name=abc,":        "name=abc%2C",
		"name=abc,;Path=/":  "name=abc%2C;Path=/",
		"name=abc":          "name=abc",
		"name=a,b,":         "name=a,b%2C",
	}
	for in, want := range cases {
		if got := ckjar.FilterEscapeTrailingComma(in); got != want {
			t.Errorf("FilterEscapeTrailingComma(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilterNormalizeRootPath(t *testing.T) {
	in := "name=v; path=/abc;Secure"
	got := ckjar.FilterNormalizeRootPath(in)
	want := "name=v; path=/;Secure"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
