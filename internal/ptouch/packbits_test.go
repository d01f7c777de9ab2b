package ptouch

import (
	"bytes"
	"testing"
)

// unpackBits reverses packBits, used to verify round trips.
func unpackBits(src []byte) []byte {
	var out []byte
	i := 0
	for i < len(src) {
		n := int8(src[i])
		i++
		if n >= 0 {
			count := int(n) + 1
			out = append(out, src[i:i+count]...)
			i += count
		} else {
			count := int(-n) + 1
			for j := 0; j < count; j++ {
				out = append(out, src[i])
			}
			i++
		}
	}
	return out
}

func TestPackBits(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		want []byte
	}{
		{
			name: "empty",
			src:  nil,
			want: nil,
		},
		{
			name: "single byte",
			src:  []byte{0xAA},
			want: []byte{0x00, 0xAA},
		},
		{
			name: "two literals",
			src:  []byte{0x01, 0x02},
			want: []byte{0x01, 0x01, 0x02},
		},
		{
			name: "run of three",
			src:  []byte{0x00, 0x00, 0x00},
			want: []byte{0xFE, 0x00},
		},
		{
			name: "full blank line",
			src:  make([]byte, 16),
			want: []byte{0xF1, 0x00},
		},
		{
			name: "run then literal",
			src:  []byte{0x00, 0x00, 0x00, 0x01, 0x02},
			want: []byte{0xFE, 0x00, 0x01, 0x01, 0x02},
		},
		{
			name: "literal then run",
			src:  []byte{0x01, 0x02, 0xFF, 0xFF, 0xFF, 0xFF},
			want: []byte{0x01, 0x01, 0x02, 0xFD, 0xFF},
		},
		{
			name: "pair stays literal",
			src:  []byte{0x05, 0x05, 0x07},
			want: []byte{0x02, 0x05, 0x05, 0x07},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := packBits(tt.src)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("packBits(% x) = % x, want % x", tt.src, got, tt.want)
			}
		})
	}
}

func TestPackBitsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{"alternating", []byte{0x00, 0xFF, 0x00, 0xFF, 0x00, 0xFF}},
		{"long run", bytes.Repeat([]byte{0x55}, 200)},
		{"long literal", func() []byte {
			b := make([]byte, 200)
			for i := range b {
				b[i] = byte(i * 7)
			}
			return b
		}()},
		{"typical line", []byte{0x00, 0x00, 0x3F, 0xFC, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80, 0x01, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := packBits(tt.src)
			got := unpackBits(packed)
			if !bytes.Equal(got, tt.src) {
				t.Errorf("round trip = % x, want % x", got, tt.src)
			}
		})
	}
}
