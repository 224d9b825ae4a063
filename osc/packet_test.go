package osc

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func BenchmarkDecode(b *testing.B) {
	raw, _ := NewMessage("/composition/layers/1/clips/1/transport/position", float32(0.123456789)).MarshalBinary()
	b.ResetTimer()
	b.ReportAllocs()
	var last []float64
	for n := 0; n < b.N; n++ {
		for _, args := range Decode(raw) {
			last = args
		}
	}
	result = last
}

func TestDecode(t *testing.T) {
	tests := []testCase{}
	tests = append(tests, messageTestCases...)
	tests = append(tests, bundleTestCases...)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var addrs []string
			var args [][]float64
			for addr, a := range Decode(tt.raw) {
				addrs = append(addrs, addr)
				args = append(args, a)
			}
			assert.Equal(t, tt.addrs, addrs)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestDecode_StopsEarly(t *testing.T) {
	raw, err := NewBundle(NewMessage("/1", int32(1)), NewMessage("/2", int32(2)), NewMessage("/3", int32(3))).MarshalBinary()
	require.NoError(t, err)

	var addrs []string
	for addr := range Decode(raw) {
		addrs = append(addrs, addr)
		if len(addrs) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"/1", "/2"}, addrs)
}

func TestDecode_UnsupportedTagDropsMessage(t *testing.T) {
	for range Decode([]byte("/a\x00\x00,T\x00\x00")) {
		t.Fatal("message with unsupported tag should be dropped")
	}
}

func TestIsBundle(t *testing.T) {
	assert.True(t, IsBundle([]byte("#bundle\x00\x00\x00\x00\x00\x00\x00\x00\x01")))
	assert.False(t, IsBundle([]byte("#bundl")))
	assert.False(t, IsBundle([]byte("/bundle\x00")))
}

func TestDecode_RoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789_/"

	for i := 0; i < 500; i++ {
		var sb strings.Builder
		sb.WriteByte('/')
		for j := rnd.Intn(24); j > 0; j-- {
			sb.WriteByte(letters[rnd.Intn(len(letters))])
		}
		addr := sb.String()

		msg := NewMessage(addr)
		var want []float64
		for j := rnd.Intn(8); j > 0; j-- {
			switch rnd.Intn(3) {
			case 0:
				v := float32(rnd.NormFloat64() * 1000)
				msg.Append(v)
				want = append(want, float64(v))
			case 1:
				v := int32(rnd.Uint32())
				msg.Append(v)
				want = append(want, float64(v))
			default:
				v := rnd.NormFloat64() * 1e6
				msg.Append(v)
				want = append(want, v)
			}
		}

		raw, err := msg.MarshalBinary()
		require.NoError(t, err)

		gotAddr, gotArgs, err := ParseMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, addr, gotAddr)
		require.Len(t, gotArgs, len(want))
		for j := range want {
			assert.Equal(t, math.Float64bits(want[j]), math.Float64bits(gotArgs[j]), "argument %d of %s", j, msg)
		}
	}
}

func FuzzDecode(f *testing.F) {
	for _, tc := range bundleTestCases {
		f.Add(tc.raw)
	}
	for _, tc := range messageTestCases {
		f.Add(tc.raw)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		for addr, args := range Decode(data) {
			msg := NewMessage(addr)
			for _, a := range args {
				msg.Append(a)
			}
			raw, err := msg.MarshalBinary()
			if err != nil {
				// Oversized packets are rejected by the encoder.
				continue
			}
			addr2, args2, err := ParseMessage(raw)
			if err != nil {
				t.Fatalf("ParseMessage(): err != nil on re-encoded message %v: %v", msg, err)
			}
			if addr2 != addr || len(args2) != len(args) {
				t.Fatalf("round trip mismatch: %q %v != %q %v", addr, args, addr2, args2)
			}
		}
	})
}
