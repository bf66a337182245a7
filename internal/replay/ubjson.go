package replay

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ubjsonDecoder reads the subset of UBJSON that Slippi writes into the
// metadata element: objects with uint8-length keys and string, integer, and
// float values.
type ubjsonDecoder struct {
	data []byte
	pos  int
}

func (d *ubjsonDecoder) byte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, fmt.Errorf("unexpected end of metadata at offset %d", d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *ubjsonDecoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, fmt.Errorf("metadata truncated at offset %d", d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// object decodes a UBJSON object body; the caller has consumed the '{'.
func (d *ubjsonDecoder) object() (map[string]any, error) {
	obj := map[string]any{}
	for {
		marker, err := d.byte()
		if err != nil {
			return nil, err
		}
		if marker == '}' {
			return obj, nil
		}
		if marker != 'U' {
			return nil, fmt.Errorf("expected key length marker 'U', got %q", marker)
		}
		keyLen, err := d.byte()
		if err != nil {
			return nil, err
		}
		key, err := d.take(int(keyLen))
		if err != nil {
			return nil, err
		}
		value, err := d.value()
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		obj[string(key)] = value
	}
}

func (d *ubjsonDecoder) value() (any, error) {
	marker, err := d.byte()
	if err != nil {
		return nil, err
	}
	switch marker {
	case '{':
		return d.object()
	case 'S':
		lenMarker, err := d.byte()
		if err != nil {
			return nil, err
		}
		if lenMarker != 'U' {
			return nil, fmt.Errorf("unsupported string length marker %q", lenMarker)
		}
		strLen, err := d.byte()
		if err != nil {
			return nil, err
		}
		s, err := d.take(int(strLen))
		if err != nil {
			return nil, err
		}
		return string(s), nil
	case 'U':
		b, err := d.byte()
		return int64(b), err
	case 'i':
		b, err := d.byte()
		return int64(int8(b)), err
	case 'I':
		b, err := d.take(2)
		if err != nil {
			return nil, err
		}
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case 'l':
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case 'L':
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	case 'd':
		b, err := d.take(4)
		if err != nil {
			return nil, err
		}
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), nil
	case 'D':
		b, err := d.take(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
	default:
		return nil, fmt.Errorf("unsupported UBJSON marker %q", marker)
	}
}

// decodeMetadata parses the metadata object starting at the '{' byte.
func decodeMetadata(data []byte) (map[string]any, error) {
	d := &ubjsonDecoder{data: data}
	marker, err := d.byte()
	if err != nil {
		return nil, err
	}
	if marker != '{' {
		return nil, fmt.Errorf("metadata does not start with an object")
	}
	return d.object()
}
