package uarr

import (
	"fmt"
	"math"

	"github.com/dd0wney/fluxstore/pkg/pools"
)

// encoder accumulates the payload and the deduplicated name table for one
// encoding unit. Names are indexed in first-appearance order, which keeps
// the output deterministic.
type encoder struct {
	names     map[string]uint16
	nameOrder []string
	payload   *pools.BufferBuilder
}

// Encode serializes a value into a self-describing UArr unit.
// Encoding the same logical value always produces identical bytes.
func Encode(v Value) ([]byte, error) {
	e := &encoder{
		names:   make(map[string]uint16),
		payload: pools.NewBufferBuilder(pools.MediumSize),
	}
	defer e.payload.Release()

	if err := e.encodeValue(v); err != nil {
		return nil, err
	}

	nameTableSize := 0
	for _, name := range e.nameOrder {
		nameTableSize += 2 + len(name)
	}
	if nameTableSize > math.MaxUint32 || e.payload.Len() > math.MaxUint32 {
		return nil, ErrValueTooLarge
	}

	out := pools.NewBufferBuilder(HeaderSize + nameTableSize + e.payload.Len())
	out.WriteUint32(Magic)
	out.WriteUint16(Version)
	out.WriteUint16(uint16(len(e.nameOrder)))
	out.WriteUint32(uint32(nameTableSize))
	out.WriteUint32(uint32(e.payload.Len()))
	for _, name := range e.nameOrder {
		out.WriteUint16(uint16(len(name)))
		out.WriteString(name)
	}
	out.Write(e.payload.Bytes())

	// The caller owns the result, so hand back a copy and return the
	// builder's buffer to the pool.
	encoded := make([]byte, out.Len())
	copy(encoded, out.Bytes())
	out.Release()
	return encoded, nil
}

// internName returns the table index for a field name, adding it on first use
func (e *encoder) internName(name string) (uint16, error) {
	if idx, ok := e.names[name]; ok {
		return idx, nil
	}
	// The header's name count is a u16, so the table holds at most
	// 65535 entries (indexes 0..65534).
	if len(e.nameOrder) >= math.MaxUint16 {
		return 0, ErrNameTableFull
	}
	if len(name) > math.MaxUint16 {
		return 0, fmt.Errorf("field name of %d bytes: %w", len(name), ErrValueTooLarge)
	}
	idx := uint16(len(e.nameOrder))
	e.names[name] = idx
	e.nameOrder = append(e.nameOrder, name)
	return idx, nil
}

func (e *encoder) encodeValue(v Value) error {
	switch v.kind {
	case KindNull:
		e.payload.WriteByte(tagNull)

	case KindUndefined:
		e.payload.WriteByte(tagUndefined)

	case KindBool:
		if v.b {
			e.payload.WriteByte(tagTrue)
		} else {
			e.payload.WriteByte(tagFalse)
		}

	case KindInt:
		e.payload.WriteByte(tagInt)
		e.payload.WriteInt64(v.i)

	case KindFloat:
		e.payload.WriteByte(tagFloat)
		e.payload.WriteFloat64(v.f)

	case KindString:
		// Length-prefixed, never NUL-terminated: strings may legitimately
		// contain embedded NUL bytes.
		if int64(len(v.s)) > math.MaxUint32 {
			return fmt.Errorf("string of %d bytes: %w", len(v.s), ErrValueTooLarge)
		}
		e.payload.WriteByte(tagString)
		e.payload.WriteUint32(uint32(len(v.s)))
		e.payload.WriteString(v.s)

	case KindNodeRef:
		if len(v.s) > math.MaxUint16 {
			return fmt.Errorf("node id of %d bytes: %w", len(v.s), ErrValueTooLarge)
		}
		e.payload.WriteByte(tagNodeRef)
		e.payload.WriteUint16(uint16(len(v.s)))
		e.payload.WriteString(v.s)

	case KindArray:
		if int64(len(v.elems)) > math.MaxUint32 {
			return fmt.Errorf("array of %d elements: %w", len(v.elems), ErrValueTooLarge)
		}
		e.payload.WriteByte(tagArray)
		e.payload.WriteUint32(uint32(len(v.elems)))
		for _, elem := range v.elems {
			if err := e.encodeValue(elem); err != nil {
				return err
			}
		}

	case KindObject:
		if int64(len(v.fields)) > math.MaxUint32 {
			return fmt.Errorf("object of %d fields: %w", len(v.fields), ErrValueTooLarge)
		}
		e.payload.WriteByte(tagObject)
		e.payload.WriteUint32(uint32(len(v.fields)))
		for _, f := range v.fields {
			idx, err := e.internName(f.Name)
			if err != nil {
				return err
			}
			e.payload.WriteUint16(idx)
			if err := e.encodeValue(f.Value); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("cannot encode value of kind %d", v.kind)
	}
	return nil
}
