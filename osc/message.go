package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Message represents a single OSC message. An OSC message consists of an OSC
// address pattern and zero or more arguments.
type Message struct {
	Address   string
	Arguments []interface{}
}

// Verify that Messages implements the Packet interface.
var _ Packet = (*Message)(nil)

// NewMessage returns a new Message. The address parameter is the OSC address.
func NewMessage(addr string, args ...interface{}) *Message {
	return &Message{Address: addr, Arguments: args}
}

// Append appends the given arguments to the arguments list.
func (m *Message) Append(args ...interface{}) error {
	for _, a := range args {
		if ToTypeTag(a) == TypeInvalid {
			return fmt.Errorf("Append: %w: %T", ErrUnsupportedType, a)
		}
	}
	m.Arguments = append(m.Arguments, args...)
	return nil
}

// Clear clears the OSC address and all arguments.
func (m *Message) Clear() {
	m.Address = ""
	m.Arguments = m.Arguments[:0]
}

// TypeTags returns the type tag string.
func (m *Message) TypeTags() (string, error) {
	if m == nil {
		return "", fmt.Errorf("TypeTags: message is nil")
	}

	return GetTypeTag(m.Arguments)
}

// String implements the fmt.Stringer interface.
func (m *Message) String() string {
	if m == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.Address)

	tags, err := m.TypeTags()
	if err != nil || len(m.Arguments) == 0 {
		return sb.String()
	}

	sb.WriteByte(' ')
	sb.WriteString(tags)
	for _, arg := range m.Arguments {
		fmt.Fprintf(&sb, " %v", arg)
	}

	return sb.String()
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (m *Message) MarshalBinary() ([]byte, error) {
	data := new(bytes.Buffer)
	if err := m.LightMarshalBinary(data); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}

// LightMarshalBinary appends the encoded message to data.
func (m *Message) LightMarshalBinary(data *bytes.Buffer) error {
	typetags, err := m.TypeTags()
	if err != nil {
		return fmt.Errorf("LightMarshalBinary: %w", err)
	}

	start := data.Len()
	writePaddedString(m.Address, data)
	writePaddedString(typetags, data)

	buf := make([]byte, bit64Size)
	for _, arg := range m.Arguments {
		switch t := arg.(type) {
		case int32:
			binary.BigEndian.PutUint32(buf, uint32(t))
			data.Write(buf[:bit32Size])
		case float32:
			binary.BigEndian.PutUint32(buf, math.Float32bits(t))
			data.Write(buf[:bit32Size])
		case float64:
			binary.BigEndian.PutUint64(buf, math.Float64bits(t))
			data.Write(buf)
		}
	}

	if n := data.Len() - start; n > MaxPacketSize {
		return fmt.Errorf("LightMarshalBinary: packet too large: %d", n)
	}

	return nil
}

// ParseMessage decodes a single OSC message. Every argument is widened to
// float64. Type tags other than f, i and d fail the whole message.
func ParseMessage(data []byte) (string, []float64, error) {
	addr, _, args, err := parseMessage(data)
	return addr, args, err
}

// parseMessage is ParseMessage that also reports the offsets of the type tag
// string and of the first argument.
func parseMessage(data []byte) (addr string, offsets [2]int, args []float64, err error) {
	if len(data) == 0 {
		return "", offsets, nil, fmt.Errorf("ParseMessage: empty packet")
	}

	addr, p, err := parsePaddedString(data)
	if err != nil {
		return "", offsets, nil, fmt.Errorf("ParseMessage: address: %w", err)
	}
	offsets[0] = p

	tags, n, err := parsePaddedString(data[p:])
	if err != nil {
		return "", offsets, nil, fmt.Errorf("ParseMessage: typetags: %w", err)
	}
	if len(tags) == 0 || tags[0] != ',' {
		return "", offsets, nil, fmt.Errorf("ParseMessage: unsupported typetag string: %q", tags)
	}
	p += n
	offsets[1] = p

	args = make([]float64, 0, len(tags)-1)
	for _, c := range tags[1:] {
		t := TypeTag(c)
		v, err := readArgument(t, data[p:])
		if err != nil {
			return "", offsets, nil, fmt.Errorf("ParseMessage: %w", err)
		}
		args = append(args, v)
		p += argSize(t)
	}

	return addr, offsets, args, nil
}
