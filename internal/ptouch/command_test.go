package ptouch

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewCommandBufferPreamble(t *testing.T) {
	c := NewCommandBuffer()
	got := c.Bytes()

	if len(got) != invalidateLength+2+4 {
		t.Fatalf("preamble length = %d, want %d", len(got), invalidateLength+2+4)
	}
	for i := 0; i < invalidateLength; i++ {
		if got[i] != 0x00 {
			t.Fatalf("invalidate byte %d = %#x, want 0x00", i, got[i])
		}
	}
	rest := got[invalidateLength:]
	want := []byte{0x1B, 0x40, 0x1B, 0x69, 0x61, 0x01}
	if !bytes.Equal(rest, want) {
		t.Errorf("init sequence = % x, want % x", rest, want)
	}
}

// tail returns the command bytes appended after the preamble.
func tail(c *CommandBuffer, before int) []byte {
	return c.Bytes()[before:]
}

func TestSetPrinterInfo(t *testing.T) {
	c := NewCommandBuffer()
	n := c.Len()
	c.SetPrinterInfo(24)

	got := tail(c, n)
	want := []byte{0x1B, 0x69, 0x7A, 0x84, 0x00, 24, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("SetPrinterInfo(24) = % x, want % x", got, want)
	}
}

func TestSetCutMode(t *testing.T) {
	tests := []struct {
		name    string
		autoCut bool
		want    []byte
	}{
		{"enabled", true, []byte{0x1B, 0x69, 0x4D, 0x40}},
		{"disabled", false, []byte{0x1B, 0x69, 0x4D, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCommandBuffer()
			n := c.Len()
			c.SetCutMode(tt.autoCut)
			if got := tail(c, n); !bytes.Equal(got, tt.want) {
				t.Errorf("SetCutMode(%v) = % x, want % x", tt.autoCut, got, tt.want)
			}
		})
	}
}

func TestSetAdvancedOptions(t *testing.T) {
	tests := []struct {
		name          string
		halfCut       bool
		chainPrinting bool
		wantMode      byte
	}{
		{"half cut, no chain", true, false, 0x0C},
		{"half cut, chain", true, true, 0x04},
		{"no half cut, no chain", false, false, 0x08},
		{"no half cut, chain", false, true, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCommandBuffer()
			n := c.Len()
			c.SetAdvancedOptions(tt.halfCut, tt.chainPrinting)
			got := tail(c, n)
			want := []byte{0x1B, 0x69, 0x4B, tt.wantMode}
			if !bytes.Equal(got, want) {
				t.Errorf("SetAdvancedOptions(%v, %v) = % x, want % x",
					tt.halfCut, tt.chainPrinting, got, want)
			}
		})
	}
}

func TestSetMarginLittleEndian(t *testing.T) {
	c := NewCommandBuffer()
	n := c.Len()
	c.SetMargin(0x0102)

	got := tail(c, n)
	want := []byte{0x1B, 0x69, 0x64, 0x02, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("SetMargin(0x0102) = % x, want % x", got, want)
	}
}

func TestAddImageCompressed(t *testing.T) {
	c := NewCommandBuffer()
	c.SetCompressionMode()
	n := c.Len()

	line := make([]byte, bytesPerLine)
	line[0] = 0xF0
	c.AddImage(&RasterImage{lines: [][]byte{line, nil}})

	got := tail(c, n)
	packed := packBits(line)
	want := []byte{0x47, byte(len(packed)), 0x00}
	want = append(want, packed...)
	want = append(want, 0x5A)
	if !bytes.Equal(got, want) {
		t.Errorf("AddImage = % x, want % x", got, want)
	}
}

func TestAddImageUncompressed(t *testing.T) {
	c := NewCommandBuffer()
	n := c.Len()

	line := make([]byte, bytesPerLine)
	line[3] = 0x01
	c.AddImage(&RasterImage{lines: [][]byte{line}})

	got := tail(c, n)
	want := []byte{0x47, byte(bytesPerLine), 0x00}
	want = append(want, line...)
	if !bytes.Equal(got, want) {
		t.Errorf("AddImage = % x, want % x", got, want)
	}
}

func TestPageBreakAndEject(t *testing.T) {
	c := NewCommandBuffer()
	n := c.Len()
	c.AddPageBreak()
	c.Eject()

	if got := tail(c, n); !bytes.Equal(got, []byte{0x0C, 0x1A}) {
		t.Errorf("page break + eject = % x, want 0c 1a", got)
	}
}

func TestWriteHexDump(t *testing.T) {
	c := NewCommandBuffer()
	var sb strings.Builder
	if err := c.WriteHexDump(&sb); err != nil {
		t.Fatalf("WriteHexDump: %v", err)
	}

	out := sb.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// 106 preamble bytes at 16 per row.
	if len(lines) != 7 {
		t.Fatalf("hex dump has %d rows, want 7", len(lines))
	}
	if !strings.HasPrefix(lines[0], "00000000 ") {
		t.Errorf("first row = %q, want offset prefix 00000000", lines[0])
	}
	if !strings.HasPrefix(lines[6], "00000060 ") {
		t.Errorf("last row = %q, want offset prefix 00000060", lines[6])
	}
	if !strings.Contains(lines[6], "1b 40") {
		t.Errorf("last row = %q, want initialize bytes 1b 40", lines[6])
	}
}
