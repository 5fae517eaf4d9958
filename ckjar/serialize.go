package ckjar

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers for one serialized Cookie. Chosen once; changing them
// breaks round-trip compatibility with previously-serialized jars.
const (
	fieldName     = 1
	fieldValue    = 2
	fieldDomain   = 3
	fieldPath     = 4
	fieldExpiry   = 5 // int64 unix seconds, 0 means "no expiry"
	fieldSecure   = 6
	fieldHTTPOnly = 7
	fieldExpired  = 8
)

// Jar-level policy field numbers, stored once ahead of the repeated cookie
// records.
const (
	jarFieldEscapeValuesOnReceive      = 1
	jarFieldIgnoreInvalidCookie        = 2
	jarFieldIgnoreSetForExpiredCookies = 3
	jarFieldExpireBeforeSet            = 4
	jarFieldCookie                     = 5 // repeated, length-delimited sub-message
)

func appendCookie(b []byte, c *Cookie) []byte {
	var rec []byte
	rec = protowire.AppendTag(rec, fieldName, protowire.BytesType)
	rec = protowire.AppendString(rec, c.Name)
	rec = protowire.AppendTag(rec, fieldValue, protowire.BytesType)
	rec = protowire.AppendString(rec, c.Value)
	rec = protowire.AppendTag(rec, fieldDomain, protowire.BytesType)
	rec = protowire.AppendString(rec, c.Domain)
	rec = protowire.AppendTag(rec, fieldPath, protowire.BytesType)
	rec = protowire.AppendString(rec, c.Path)

	var expiry int64
	if c.hasExpiry() {
		expiry = c.Expiry.Unix()
	}
	rec = protowire.AppendTag(rec, fieldExpiry, protowire.VarintType)
	rec = protowire.AppendVarint(rec, protowire.EncodeZigZag(expiry))

	rec = protowire.AppendTag(rec, fieldSecure, protowire.VarintType)
	rec = protowire.AppendVarint(rec, boolToVarint(c.Secure))
	rec = protowire.AppendTag(rec, fieldHTTPOnly, protowire.VarintType)
	rec = protowire.AppendVarint(rec, boolToVarint(c.HTTPOnly))
	rec = protowire.AppendTag(rec, fieldExpired, protowire.VarintType)
	rec = protowire.AppendVarint(rec, boolToVarint(c.Expired))

	b = protowire.AppendTag(b, jarFieldCookie, protowire.BytesType)
	b = protowire.AppendBytes(b, rec)
	return b
}

func boolToVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// Serialize encodes the entire jar (policy flags plus every stored cookie,
// including tombstoned/expired ones so restores are exact) into a
// length-prefixed protobuf wire-format byte string. No .proto file or
// generated code is involved — this is a direct, hand-assembled use of
// protowire, matching spec.md §9's call for a stable, explicit,
// length-prefixed format in place of a legacy binary formatter.
func (j *Jar) Serialize() []byte {
	opt := j.Options()

	var b []byte
	b = protowire.AppendTag(b, jarFieldEscapeValuesOnReceive, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(opt.EscapeValuesOnReceive))
	b = protowire.AppendTag(b, jarFieldIgnoreInvalidCookie, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(opt.IgnoreInvalidCookie))
	b = protowire.AppendTag(b, jarFieldIgnoreSetForExpiredCookies, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(opt.IgnoreSetForExpiredCookies))
	b = protowire.AppendTag(b, jarFieldExpireBeforeSet, protowire.VarintType)
	b = protowire.AppendVarint(b, boolToVarint(opt.ExpireBeforeSet))

	for _, c := range j.All() {
		b = appendCookie(b, &c)
	}
	return b
}

// Deserialize parses bytes produced by Serialize into a fresh Jar.
func Deserialize(data []byte) (*Jar, error) {
	j := New(AcceptOptions{})

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("ckjar: deserialize: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch num {
		case jarFieldEscapeValuesOnReceive, jarFieldIgnoreInvalidCookie,
			jarFieldIgnoreSetForExpiredCookies, jarFieldExpireBeforeSet:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("ckjar: deserialize: bad varint: %w", protowire.ParseError(n))
			}
			data = data[n:]
			applyJarFlag(&j.opt, num, v != 0)
		case jarFieldCookie:
			if typ != protowire.BytesType {
				return nil, fmt.Errorf("ckjar: deserialize: cookie field has wrong wire type %v", typ)
			}
			rec, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("ckjar: deserialize: bad cookie bytes: %w", protowire.ParseError(n))
			}
			data = data[n:]
			c, err := parseCookieRecord(rec)
			if err != nil {
				return nil, err
			}
			j.cookies[keyFor(c)] = c
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("ckjar: deserialize: skip unknown field: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return j, nil
}

func applyJarFlag(opt *AcceptOptions, field protowire.Number, v bool) {
	switch field {
	case jarFieldEscapeValuesOnReceive:
		opt.EscapeValuesOnReceive = v
	case jarFieldIgnoreInvalidCookie:
		opt.IgnoreInvalidCookie = v
	case jarFieldIgnoreSetForExpiredCookies:
		opt.IgnoreSetForExpiredCookies = v
	case jarFieldExpireBeforeSet:
		opt.ExpireBeforeSet = v
	}
}

func parseCookieRecord(rec []byte) (*Cookie, error) {
	c := &Cookie{}
	for len(rec) > 0 {
		num, typ, n := protowire.ConsumeTag(rec)
		if n < 0 {
			return nil, fmt.Errorf("ckjar: deserialize cookie: bad tag: %w", protowire.ParseError(n))
		}
		rec = rec[n:]

		switch num {
		case fieldName, fieldValue, fieldDomain, fieldPath:
			s, n := protowire.ConsumeString(rec)
			if n < 0 {
				return nil, fmt.Errorf("ckjar: deserialize cookie: bad string: %w", protowire.ParseError(n))
			}
			rec = rec[n:]
			switch num {
			case fieldName:
				c.Name = s
			case fieldValue:
				c.Value = s
			case fieldDomain:
				c.Domain = s
			case fieldPath:
				c.Path = s
			}
		case fieldExpiry:
			v, n := protowire.ConsumeVarint(rec)
			if n < 0 {
				return nil, fmt.Errorf("ckjar: deserialize cookie: bad expiry: %w", protowire.ParseError(n))
			}
			rec = rec[n:]
			secs := protowire.DecodeZigZag(v)
			if secs != 0 {
				c.Expiry = time.Unix(secs, 0).UTC()
			}
		case fieldSecure, fieldHTTPOnly, fieldExpired:
			v, n := protowire.ConsumeVarint(rec)
			if n < 0 {
				return nil, fmt.Errorf("ckjar: deserialize cookie: bad bool: %w", protowire.ParseError(n))
			}
			rec = rec[n:]
			switch num {
			case fieldSecure:
				c.Secure = v != 0
			case fieldHTTPOnly:
				c.HTTPOnly = v != 0
			case fieldExpired:
				c.Expired = v != 0
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, rec)
			if n < 0 {
				return nil, fmt.Errorf("ckjar: deserialize cookie: skip unknown field: %w", protowire.ParseError(n))
			}
			rec = rec[n:]
		}
	}
	return c, nil
}
