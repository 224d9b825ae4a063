package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	bundleTagString = "#bundle"

	// bundleHeaderSize covers the padded "#bundle" string and the timetag.
	bundleHeaderSize = 16
)

// Bundle represents an OSC bundle. It consists of the OSC-string "#bundle"
// followed by an OSC Time Tag, followed by zero or more OSC bundle/message
// elements. The OSC-timetag is a 64-bit fixed point time tag. See
// http://opensoundcontrol.org/spec-1_0.html for more information.
type Bundle struct {
	Timetag  Timetag
	Elements []Packet
}

// Verify that Bundle implements the Packet interface.
var _ Packet = (*Bundle)(nil)

// NewBundle returns an OSC Bundle with an immediate timetag holding the given elements.
func NewBundle(elements ...Packet) *Bundle {
	return &Bundle{Timetag: NewImmediateTimetag(), Elements: elements}
}

// NewBundleWithTime returns an empty OSC Bundle scheduled at the given time.
func NewBundleWithTime(time time.Time) *Bundle {
	return &Bundle{Timetag: NewTimetagFromTime(time)}
}

// Append appends an OSC bundle or OSC message to the bundle.
func (b *Bundle) Append(pck Packet) error {
	switch t := pck.(type) {
	default:
		return fmt.Errorf("unsupported OSC packet type: only Bundle and Message are supported")

	case *Bundle, *Message:
		b.Elements = append(b.Elements, t)
	}

	return nil
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	data := new(bytes.Buffer)
	if err := b.LightMarshalBinary(data); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

// LightMarshalBinary appends the encoded bundle to data with the following format:
// 1. Bundle string: '#bundle'
// 2. OSC timetag
// 3. Length of first OSC bundle element
// 4. First bundle element
// 5. Length of n OSC bundle element
// 6. n bundle element
func (b *Bundle) LightMarshalBinary(data *bytes.Buffer) error {
	writePaddedString(bundleTagString, data)

	tt, _ := b.Timetag.MarshalBinary()
	data.Write(tt)

	size := make([]byte, bit32Size)
	for _, e := range b.Elements {
		bb, err := e.MarshalBinary()
		if err != nil {
			return err
		}

		// Write the size of the element
		binary.BigEndian.PutUint32(size, uint32(len(bb)))
		data.Write(size)
		data.Write(bb)
	}

	return nil
}
