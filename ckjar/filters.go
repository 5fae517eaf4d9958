package ckjar

import "strings"

// FilterDomain normalizes a Set-Cookie domain attribute per spec.md §4.5
// step 3: a single-label "local wildcard" (a leading dot with no further
// dot) has the leading dot stripped; a multi-label dotted domain keeps its
// leading dot; empty or whitespace-only input yields "" (I8).
func FilterDomain(domain string) string {
	trimmed := strings.TrimSpace(domain)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, ".") {
		return trimmed
	}
	rest := trimmed[1:]
	if !strings.Contains(rest, ".") {
		return rest
	}
	return trimmed
}

// FilterTrim trims leading/trailing whitespace from a raw Set-Cookie value.
func FilterTrim(raw string) string {
	return strings.TrimSpace(raw)
}

// FilterNormalizeRootPath truncates a "path=/something" segment immediately
// following "path=/" to just "path=/", per spec.md §4.5's pre-storage
// filter list.
func FilterNormalizeRootPath(raw string) string {
	const marker = "path=/"
	idx := strings.Index(strings.ToLower(raw), marker)
	if idx == -1 {
		return raw
	}
	valueStart := idx + len(marker)
	if valueStart >= len(raw) {
		return raw
	}
	// Find the end of this path value: next ';' or end of string.
	end := strings.IndexByte(raw[valueStart:], ';')
	if end == -1 {
		end = len(raw) - valueStart
	}
	if end == 0 {
		// Already bare "path=/" or "path=/;..."
		return raw
	}
	return raw[:valueStart] + raw[valueStart+end:]
}

// FilterRepairInvalidExpireYear overwrites the last digit of a literal
// "9999" occurring after "expires=" with "8", repairing the year to 9998
// in place, leaving every other character identical (I9).
func FilterRepairInvalidExpireYear(raw string) string {
	idx := strings.Index(strings.ToLower(raw), "expires=")
	if idx == -1 {
		return raw
	}
	yearIdx := strings.Index(raw[idx:], "9999")
	if yearIdx == -1 {
		return raw
	}
	pos := idx + yearIdx + 3 // offset of the last '9' in "9999"
	b := []byte(raw)
	b[pos] = '8'
	return string(b)
}

// FilterEscapeTrailingComma percent-escapes a comma that is the last
// character of the value segment (immediately before ';' or end of
// string), leaving every other character untouched (I10).
func FilterEscapeTrailingComma(raw string) string {
	semi := strings.IndexByte(raw, ';')
	segment := raw
	rest := ""
	if semi != -1 {
		segment = raw[:semi]
		rest = raw[semi:]
	}
	if strings.HasSuffix(segment, ",") {
		segment = segment[:len(segment)-1] + "%2C"
	}
	return segment + rest
}

// ApplyPreStorageFilters runs every pre-storage filter over raw in the
// order spec.md §4.5 lists them: trim, root-path normalization, year
// repair, trailing-comma escape.
func ApplyPreStorageFilters(raw string) string {
	raw = FilterTrim(raw)
	raw = FilterNormalizeRootPath(raw)
	raw = FilterRepairInvalidExpireYear(raw)
	raw = FilterEscapeTrailingComma(raw)
	return raw
}
