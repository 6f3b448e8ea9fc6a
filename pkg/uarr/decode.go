package uarr

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decoder walks one UArr unit. Every read is bounds-checked against the
// supplied buffer so malformed input can never cause an out-of-bounds read,
// only an ErrMalformedFormat.
type decoder struct {
	buf   []byte
	pos   int
	names []string
}

// Decode parses a UArr unit produced by Encode. It fails with an error
// wrapping ErrMalformedFormat on bad magic, an unsupported version, any
// declared length running past the buffer, or an out-of-range name index.
func Decode(b []byte) (Value, error) {
	if len(b) < HeaderSize {
		return Value{}, fmt.Errorf("unit of %d bytes is shorter than the %d-byte header: %w",
			len(b), HeaderSize, ErrMalformedFormat)
	}

	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != Magic {
		return Value{}, fmt.Errorf("bad magic %08x: %w", magic, ErrMalformedFormat)
	}
	version := binary.LittleEndian.Uint16(b[4:6])
	if version != Version {
		return Value{}, fmt.Errorf("unsupported version %d: %w", version, ErrMalformedFormat)
	}
	nameCount := int(binary.LittleEndian.Uint16(b[6:8]))
	nameTableSize := int(binary.LittleEndian.Uint32(b[8:12]))
	payloadSize := int(binary.LittleEndian.Uint32(b[12:16]))

	// Validate the declared section lengths against the buffer before
	// trusting them.
	if HeaderSize+nameTableSize+payloadSize != len(b) {
		return Value{}, fmt.Errorf("declared sizes %d+%d+%d do not match unit of %d bytes: %w",
			HeaderSize, nameTableSize, payloadSize, len(b), ErrMalformedFormat)
	}

	d := &decoder{buf: b, pos: HeaderSize}
	if err := d.readNameTable(nameCount, nameTableSize); err != nil {
		return Value{}, err
	}

	v, err := d.decodeValue(0)
	if err != nil {
		return Value{}, err
	}
	if d.pos != len(b) {
		return Value{}, fmt.Errorf("%d trailing bytes after payload: %w", len(b)-d.pos, ErrMalformedFormat)
	}
	return v, nil
}

func (d *decoder) readNameTable(count, size int) error {
	end := HeaderSize + size
	d.names = make([]string, 0, count)
	for i := 0; i < count; i++ {
		if d.pos+2 > end {
			return fmt.Errorf("name table truncated at entry %d: %w", i, ErrMalformedFormat)
		}
		n := int(binary.LittleEndian.Uint16(d.buf[d.pos : d.pos+2]))
		d.pos += 2
		if d.pos+n > end {
			return fmt.Errorf("name %d of %d bytes runs past the name table: %w", i, n, ErrMalformedFormat)
		}
		d.names = append(d.names, string(d.buf[d.pos:d.pos+n]))
		d.pos += n
	}
	if d.pos != end {
		return fmt.Errorf("%d unused bytes in name table: %w", end-d.pos, ErrMalformedFormat)
	}
	return nil
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, fmt.Errorf("unexpected end of payload at offset %d: %w", d.pos, ErrMalformedFormat)
	}
	c := d.buf[d.pos]
	d.pos++
	return c, nil
}

func (d *decoder) readUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, fmt.Errorf("unexpected end of payload at offset %d: %w", d.pos, ErrMalformedFormat)
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos : d.pos+2])
	d.pos += 2
	return v, nil
}

func (d *decoder) readUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, fmt.Errorf("unexpected end of payload at offset %d: %w", d.pos, ErrMalformedFormat)
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *decoder) readUint64() (uint64, error) {
	if d.pos+8 > len(d.buf) {
		return 0, fmt.Errorf("unexpected end of payload at offset %d: %w", d.pos, ErrMalformedFormat)
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos : d.pos+8])
	d.pos += 8
	return v, nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("declared length %d runs past the buffer at offset %d: %w",
			n, d.pos, ErrMalformedFormat)
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) decodeValue(depth int) (Value, error) {
	if depth > maxNesting {
		return Value{}, fmt.Errorf("nesting deeper than %d: %w", maxNesting, ErrMalformedFormat)
	}

	tag, err := d.readByte()
	if err != nil {
		return Value{}, err
	}

	switch tag {
	case tagNull:
		return Null(), nil

	case tagUndefined:
		return Undefined(), nil

	case tagFalse:
		return Bool(false), nil

	case tagTrue:
		return Bool(true), nil

	case tagInt:
		u, err := d.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(u)), nil

	case tagFloat:
		u, err := d.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindFloat, f: math.Float64frombits(u)}, nil

	case tagString:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		b, err := d.readBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		return String(string(b)), nil

	case tagNodeRef:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		b, err := d.readBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		return NodeRef(string(b)), nil

	case tagArray:
		count, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		// Every element occupies at least a tag byte, so the declared
		// count can be sanity-checked against the remaining bytes before
		// allocating.
		if int(count) > len(d.buf)-d.pos {
			return Value{}, fmt.Errorf("array of %d elements in %d remaining bytes: %w",
				count, len(d.buf)-d.pos, ErrMalformedFormat)
		}
		elems := make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			elem, err := d.decodeValue(depth + 1)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, elem)
		}
		return Array(elems...), nil

	case tagObject:
		count, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		// Each field needs at least a 2-byte name index and a tag byte
		if int(count)*3 > len(d.buf)-d.pos {
			return Value{}, fmt.Errorf("object of %d fields in %d remaining bytes: %w",
				count, len(d.buf)-d.pos, ErrMalformedFormat)
		}
		fields := make([]Field, 0, count)
		for i := uint32(0); i < count; i++ {
			idx, err := d.readUint16()
			if err != nil {
				return Value{}, err
			}
			if int(idx) >= len(d.names) {
				return Value{}, fmt.Errorf("name index %d out of range (table has %d): %w",
					idx, len(d.names), ErrMalformedFormat)
			}
			val, err := d.decodeValue(depth + 1)
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Name: d.names[idx], Value: val})
		}
		return Object(fields...), nil

	default:
		return Value{}, fmt.Errorf("unknown tag %02x at offset %d: %w", tag, d.pos-1, ErrMalformedFormat)
	}
}
