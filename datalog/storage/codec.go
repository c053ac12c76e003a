package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/wbrown/strata-datalog/datalog"
)

// Tuple wire format: a count byte followed by tagged values. Numbers
// are a tag byte and 8 big-endian bytes; strings are a tag byte, a
// uvarint length, and the raw bytes. The same encoding serves as the
// key suffix, so identical tuples collapse to one key.
const (
	tagNumber byte = 0x01
	tagString byte = 0x02
)

// EncodeTuple serializes a tuple.
func EncodeTuple(tuple datalog.Tuple) ([]byte, error) {
	out := []byte{byte(len(tuple))}
	var scratch [binary.MaxVarintLen64]byte

	for _, v := range tuple {
		switch val := v.(type) {
		case int64:
			out = append(out, tagNumber)
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], uint64(val))
			out = append(out, buf[:]...)
		case int:
			out = append(out, tagNumber)
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], uint64(int64(val)))
			out = append(out, buf[:]...)
		case string:
			out = append(out, tagString)
			n := binary.PutUvarint(scratch[:], uint64(len(val)))
			out = append(out, scratch[:n]...)
			out = append(out, val...)
		default:
			return nil, fmt.Errorf("cannot encode value of type %T", v)
		}
	}

	return out, nil
}

// DecodeTuple deserializes a tuple.
func DecodeTuple(data []byte) (datalog.Tuple, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tuple encoding")
	}
	arity := int(data[0])
	pos := 1
	tuple := make(datalog.Tuple, 0, arity)

	for i := 0; i < arity; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("truncated tuple encoding at value %d", i)
		}
		tag := data[pos]
		pos++

		switch tag {
		case tagNumber:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("truncated number at value %d", i)
			}
			tuple = append(tuple, int64(binary.BigEndian.Uint64(data[pos:pos+8])))
			pos += 8
		case tagString:
			length, n := binary.Uvarint(data[pos:])
			if n <= 0 {
				return nil, fmt.Errorf("bad string length at value %d", i)
			}
			pos += n
			if pos+int(length) > len(data) {
				return nil, fmt.Errorf("truncated string at value %d", i)
			}
			tuple = append(tuple, string(data[pos:pos+int(length)]))
			pos += int(length)
		default:
			return nil, fmt.Errorf("unknown value tag 0x%02x at value %d", tag, i)
		}
	}

	return tuple, nil
}
