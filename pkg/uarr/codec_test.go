package uarr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

func mustEncode(t *testing.T, v Value) []byte {
	t.Helper()
	b, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return b
}

func roundTrip(t *testing.T, v Value) Value {
	t.Helper()
	decoded, err := Decode(mustEncode(t, v))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return decoded
}

func TestCodec_RoundTripScalars(t *testing.T) {
	cases := []Value{
		Null(),
		Undefined(),
		Bool(true),
		Bool(false),
		Int(0),
		Int(-1),
		Int(math.MaxInt64),
		Int(math.MinInt64),
		Float(0),
		Float(-3.75),
		Float(math.MaxFloat64),
		Float(math.SmallestNonzeroFloat64),
		String(""),
		String("hello"),
		String("unicode: é漢字"),
		NodeRef("fx-0001"),
	}
	for _, v := range cases {
		got := roundTrip(t, v)
		if !got.Equal(v) {
			t.Errorf("Round trip changed value: %v -> %v", v.Kind(), got.Kind())
		}
	}
}

func TestCodec_RoundTripSpecialFloats(t *testing.T) {
	for _, v := range []Value{Float(math.NaN()), Float(math.Inf(1)), Float(math.Inf(-1))} {
		got := roundTrip(t, v)
		if !got.Equal(v) {
			f, _ := v.AsFloat()
			g, _ := got.AsFloat()
			t.Errorf("Special float %v decoded as %v", f, g)
		}
	}
}

func TestCodec_IntDoesNotDriftToFloat(t *testing.T) {
	got := roundTrip(t, Int(7))
	if got.Kind() != KindInt {
		t.Fatalf("Encoded int decoded as %s", got.Kind())
	}
	got = roundTrip(t, Float(7))
	if got.Kind() != KindFloat {
		t.Fatalf("Encoded float decoded as %s", got.Kind())
	}
}

func TestCodec_EmbeddedNUL(t *testing.T) {
	v := String("before\x00after")
	got := roundTrip(t, v)
	s, err := got.AsString()
	if err != nil {
		t.Fatalf("AsString failed: %v", err)
	}
	if s != "before\x00after" {
		t.Errorf("Embedded NUL not preserved: %q", s)
	}
}

func TestCodec_RoundTripNested(t *testing.T) {
	v := Object(
		F("id", String("root")),
		F("type", String("view")),
		F("value", Object(
			F("id", String("inner")),
			F("type", String("snippet")),
			F("value", Array(
				Int(1),
				Float(2.5),
				Null(),
				Undefined(),
				NodeRef("fx-17"),
				Array(String("deep")),
			)),
		)),
	)
	got := roundTrip(t, v)
	if !got.Equal(v) {
		t.Error("Nested round trip changed the value")
	}
}

func TestCodec_Deterministic(t *testing.T) {
	v := Object(
		F("id", String("n1")),
		F("type", String("snippet")),
		F("value", Array(Int(1), Int(2), Int(3))),
	)
	a := mustEncode(t, v)
	b := mustEncode(t, v)
	if !bytes.Equal(a, b) {
		t.Error("Encoding the same value twice produced different bytes")
	}
}

func TestCodec_NameTableDeduplication(t *testing.T) {
	// Many objects sharing the same field names must store each name once
	node := func(id string) Value {
		return Object(
			F("id", String(id)),
			F("type", String("snippet")),
			F("value", Int(1)),
		)
	}
	one := mustEncode(t, node("a"))
	many := mustEncode(t, Array(node("a"), node("b"), node("c"), node("d")))

	nameCount := binary.LittleEndian.Uint16(many[6:8])
	if nameCount != 3 {
		t.Errorf("Expected 3 names in table, got %d", nameCount)
	}

	// The table size must not grow with the object count
	oneTable := binary.LittleEndian.Uint32(one[8:12])
	manyTable := binary.LittleEndian.Uint32(many[8:12])
	if manyTable != oneTable {
		t.Errorf("Name table grew from %d to %d bytes with repeated objects", oneTable, manyTable)
	}
}

func TestCodec_HeaderLayout(t *testing.T) {
	b := mustEncode(t, Null())

	if got := binary.LittleEndian.Uint32(b[0:4]); got != Magic {
		t.Errorf("Expected magic %08x, got %08x", Magic, got)
	}
	if got := binary.LittleEndian.Uint16(b[4:6]); got != Version {
		t.Errorf("Expected version %d, got %d", Version, got)
	}
	// Header size is the sum of its declared fields
	if HeaderSize != 4+2+2+4+4 {
		t.Errorf("HeaderSize %d does not match declared fields", HeaderSize)
	}
	// Null() has no names and a 1-byte payload
	if got := len(b); got != HeaderSize+1 {
		t.Errorf("Expected %d bytes for null unit, got %d", HeaderSize+1, got)
	}
}

func TestDecode_BadMagic(t *testing.T) {
	b := mustEncode(t, Int(1))
	b[0] ^= 0xff
	if _, err := Decode(b); !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("Expected ErrMalformedFormat for bad magic, got %v", err)
	}
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	b := mustEncode(t, Int(1))
	binary.LittleEndian.PutUint16(b[4:6], Version+1)
	if _, err := Decode(b); !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("Expected ErrMalformedFormat for unsupported version, got %v", err)
	}
}

func TestDecode_Truncated(t *testing.T) {
	b := mustEncode(t, Object(
		F("id", String("n1")),
		F("value", String("some payload worth truncating")),
	))
	// Every truncation point must fail cleanly, never read out of bounds
	for n := 0; n < len(b); n++ {
		if _, err := Decode(b[:n]); !errors.Is(err, ErrMalformedFormat) {
			t.Fatalf("Truncation at %d bytes: expected ErrMalformedFormat, got %v", n, err)
		}
	}
}

func TestDecode_NameIndexOutOfRange(t *testing.T) {
	b := mustEncode(t, Object(F("id", Int(1))))
	// Payload starts after header + name table; the field's name index is
	// the 5 bytes in (tag, count u32), at payload+5
	tableSize := int(binary.LittleEndian.Uint32(b[8:12]))
	idxOff := HeaderSize + tableSize + 5
	binary.LittleEndian.PutUint16(b[idxOff:idxOff+2], 999)
	if _, err := Decode(b); !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("Expected ErrMalformedFormat for out-of-range name index, got %v", err)
	}
}

func TestDecode_DeclaredLengthPastBuffer(t *testing.T) {
	b := mustEncode(t, String("abc"))
	// Inflate the string's declared length without adding bytes
	tableSize := int(binary.LittleEndian.Uint32(b[8:12]))
	lenOff := HeaderSize + tableSize + 1
	binary.LittleEndian.PutUint32(b[lenOff:lenOff+4], 1<<30)
	if _, err := Decode(b); !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("Expected ErrMalformedFormat for oversized declared length, got %v", err)
	}
}

func TestDecode_TrailingBytes(t *testing.T) {
	b := mustEncode(t, Int(1))
	b = append(b, 0x00)
	if _, err := Decode(b); !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("Expected ErrMalformedFormat for trailing bytes, got %v", err)
	}
}

func TestDecode_Empty(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("Expected ErrMalformedFormat for empty input, got %v", err)
	}
}

func TestEncode_DeepNestingDecodes(t *testing.T) {
	v := Int(1)
	for i := 0; i < 100; i++ {
		v = Array(v)
	}
	got := roundTrip(t, v)
	if !got.Equal(v) {
		t.Error("Deeply nested round trip changed the value")
	}
}

func TestCodec_LargeString(t *testing.T) {
	s := strings.Repeat("x", 1<<16)
	got := roundTrip(t, String(s))
	out, _ := got.AsString()
	if out != s {
		t.Error("Large string not preserved")
	}
}

// wideObject builds an object with n distinct single-use field names
func wideObject(n int) Value {
	fields := make([]Field, n)
	for i := range fields {
		fields[i] = F(fmt.Sprintf("f%05x", i), Null())
	}
	return Object(fields...)
}

func TestCodec_NameTableAtCapacity(t *testing.T) {
	// 65535 distinct names is the most the u16 name count can describe.
	v := wideObject(math.MaxUint16)
	b := mustEncode(t, v)

	count := binary.LittleEndian.Uint16(b[6:8])
	if count != math.MaxUint16 {
		t.Fatalf("name count = %d, want %d", count, math.MaxUint16)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode failed at capacity: %v", err)
	}
	if got.Len() != math.MaxUint16 {
		t.Errorf("decoded %d fields, want %d", got.Len(), math.MaxUint16)
	}
}

func TestEncode_NameTableOverflow(t *testing.T) {
	_, err := Encode(wideObject(math.MaxUint16 + 1))
	if !errors.Is(err, ErrNameTableFull) {
		t.Fatalf("expected ErrNameTableFull for 65536 distinct names, got %v", err)
	}
}
