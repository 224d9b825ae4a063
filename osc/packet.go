package osc

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"iter"
)

// Packet is the interface for Message and Bundle.
type Packet interface {
	encoding.BinaryMarshaler
}

// bundlePrefix is the padded "#bundle" string every bundle starts with.
var bundlePrefix = []byte(bundleTagString + "\x00")

// maxBundleDepth bounds recursion into nested bundles.
const maxBundleDepth = 8

// IsBundle reports whether data starts with the bundle marker.
func IsBundle(data []byte) bool {
	return bytes.HasPrefix(data, bundlePrefix)
}

// Decode returns a single-pass sequence of the (address, arguments) pairs
// carried by data, which is either one message or a bundle. Decoding never
// fails: a message that cannot be decoded is skipped, and an element whose
// size prefix is invalid ends the sequence.
func Decode(data []byte) iter.Seq2[string, []float64] {
	return func(yield func(string, []float64) bool) {
		decode(data, 0, yield)
	}
}

// decode walks data and reports false once yield asked to stop.
func decode(data []byte, depth int, yield func(string, []float64) bool) bool {
	if !IsBundle(data) {
		addr, args, err := ParseMessage(data)
		if err != nil {
			return true
		}
		return yield(addr, args)
	}

	if depth >= maxBundleDepth {
		return true
	}

	p := bundleHeaderSize
	for p+bit32Size <= len(data) {
		size := int(int32(binary.BigEndian.Uint32(data[p:])))
		p += bit32Size
		if size <= 0 || size > len(data)-p {
			return true
		}

		if !decode(data[p:p+size], depth+1, yield) {
			return false
		}
		p += size
	}

	return true
}
