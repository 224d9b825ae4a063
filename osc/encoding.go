package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	bit32Size = 4
	bit64Size = 8

	// MaxPacketSize is the largest datagram the listener will read.
	MaxPacketSize = 65535
)

////
// De/Encoding functions
////

// parsePaddedString reads a padded string from the given slice and returns the string and the number of bytes read.
// The count includes the terminating NUL and the padding up to the next 4 byte boundary, but never exceeds len(data).
func parsePaddedString(data []byte) (string, int, error) {
	pos := bytes.IndexByte(data, 0)
	if pos == -1 {
		return "", 0, fmt.Errorf("parsePaddedString: %w", io.EOF)
	}

	n := pos + 1 + padBytesNeeded(pos+1)
	if n > len(data) {
		n = len(data)
	}

	return string(data[:pos]), n, nil
}

// writePaddedString writes a string with padding bytes to the buffer.
// Returns the number of written bytes.
func writePaddedString(str string, b *bytes.Buffer) int {
	n, _ := b.WriteString(str)
	b.WriteByte(0)
	n++

	pad := padBytesNeeded(n)
	for i := 0; i < pad; i++ {
		b.WriteByte(0)
	}

	return n + pad
}

// writeTypeTags writes a typetag string to b, which must hold at least len(elems)+1 bytes.
func writeTypeTags(elems []interface{}, b []byte) (int, error) {
	b[0] = ','
	n := 1
	for _, elem := range elems {
		s := ToTypeTag(elem)
		if s == TypeInvalid {
			return n, fmt.Errorf("writeTypeTags: %w: %T", ErrUnsupportedType, elem)
		}
		b[n] = byte(s)
		n++
	}

	return n, nil
}

// readArgument decodes one argument of type t from the front of data, widened to float64.
func readArgument(t TypeTag, data []byte) (float64, error) {
	size := argSize(t)
	if size == 0 {
		return 0, fmt.Errorf("readArgument: %w: %q", ErrUnsupportedType, rune(t))
	}
	if len(data) < size {
		return 0, fmt.Errorf("readArgument: not enough bytes for %q: %w", rune(t), io.ErrUnexpectedEOF)
	}

	switch t {
	case TypeInt32:
		return float64(int32(binary.BigEndian.Uint32(data))), nil
	case TypeFloat32:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(data))), nil
	default:
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	}
}

// padBytesNeeded determines how many bytes are needed to fill up to the next 4
// byte length.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}
