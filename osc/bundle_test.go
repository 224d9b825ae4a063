package osc

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bundleTestCases = []testCase{
	{
		name: "two messages",
		obj: &Bundle{Timetag: NewImmediateTimetag(), Elements: []Packet{
			NewMessage("/fader1", float32(0.75)),
			NewMessage("/a", int32(-3), float64(1.5)),
		}},
		raw: concat(
			[]byte("#bundle\x00"), []byte{0, 0, 0, 0, 0, 0, 0, 1},
			[]byte{0, 0, 0, 16}, []byte("/fader1\x00,f\x00\x00\x3f\x40\x00\x00"),
			[]byte{0, 0, 0, 20}, []byte("/a\x00\x00,id\x00\xff\xff\xff\xfd\x3f\xf8\x00\x00\x00\x00\x00\x00"),
		),
		addrs: []string{"/fader1", "/a"},
		args:  [][]float64{{0.75}, {-3, 1.5}},
	},
	{
		name:  "empty",
		obj:   &Bundle{Timetag: NewImmediateTimetag()},
		raw:   concat([]byte("#bundle\x00"), []byte{0, 0, 0, 0, 0, 0, 0, 1}),
		addrs: nil,
		args:  nil,
	},
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// element prefixes raw with its big-endian size.
func element(raw []byte) []byte {
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(raw)))
	return append(size, raw...)
}

func TestBundle_MarshalBinary(t *testing.T) {
	for _, tt := range bundleTestCases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.obj.MarshalBinary()
			require.NoError(t, err)
			assert.Equal(t, tt.raw, got)
		})
	}
}

func TestBundle_Append(t *testing.T) {
	b := NewBundleWithTime(time.Now())
	require.NoError(t, b.Append(NewMessage("/a")))
	require.NoError(t, b.Append(NewBundle()))
	assert.Len(t, b.Elements, 2)
}

func TestDecode_BundlePartialFailure(t *testing.T) {
	good, err := NewMessage("/ok", float32(1)).MarshalBinary()
	require.NoError(t, err)

	// The second element claims 64 bytes but only 8 follow.
	raw := concat(
		[]byte("#bundle\x00"), make([]byte, 8),
		element(good),
		[]byte{0, 0, 0, 64}, []byte("/trunc\x00\x00"),
	)

	var addrs []string
	assert.NotPanics(t, func() {
		for addr, args := range Decode(raw) {
			addrs = append(addrs, addr)
			assert.Equal(t, []float64{1}, args)
		}
	})
	assert.Equal(t, []string{"/ok"}, addrs)
}

func TestDecode_BundleSkipsBadElement(t *testing.T) {
	good, _ := NewMessage("/ok", int32(2)).MarshalBinary()
	bad := []byte("/bad\x00\x00\x00\x00,s\x00\x00hi\x00\x00")

	raw := concat([]byte("#bundle\x00"), make([]byte, 8), element(bad), element(good))

	var addrs []string
	for addr := range Decode(raw) {
		addrs = append(addrs, addr)
	}
	assert.Equal(t, []string{"/ok"}, addrs)
}

func TestDecode_BundleInvalidSizes(t *testing.T) {
	good, _ := NewMessage("/ok", int32(2)).MarshalBinary()
	for _, size := range [][]byte{{0, 0, 0, 0}, {0xff, 0xff, 0xff, 0xf0}} {
		raw := concat([]byte("#bundle\x00"), make([]byte, 8), size, good)
		count := 0
		for range Decode(raw) {
			count++
		}
		assert.Zero(t, count, "size %v", size)
	}

	// A header shorter than 16 bytes yields nothing.
	for range Decode([]byte("#bundle\x00\x00\x00")) {
		t.Fatal("unexpected message")
	}
}

func TestDecode_NestedBundle(t *testing.T) {
	inner := NewBundle(NewMessage("/inner", float64(0.25)))
	outer := NewBundle(NewMessage("/outer", int32(1)), inner)
	raw, err := outer.MarshalBinary()
	require.NoError(t, err)

	got := map[string][]float64{}
	for addr, args := range Decode(raw) {
		got[addr] = args
	}
	assert.Equal(t, map[string][]float64{"/outer": {1}, "/inner": {0.25}}, got)
}
