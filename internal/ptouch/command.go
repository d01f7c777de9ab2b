// Package ptouch encodes the Brother P-touch raster command language:
// job configuration commands, compressed raster data transfer and the
// print/feed controls that separate and finish pages.
package ptouch

import (
	"bytes"
	"fmt"
	"io"
)

// Command framing bytes.
const (
	esc = 0x1B
	ff  = 0x0C // print command, no feed (page break)
	sub = 0x1A // print command with feeding (end of job)
)

// Advanced mode flags (ESC i K).
const (
	flagHalfCut         = 0x04
	flagNoChainPrinting = 0x08
)

// Mode flags (ESC i M).
const flagAutoCut = 0x40

// Print information flags (ESC i z).
const (
	piWidth   = 0x04 // media width field is valid
	piRecover = 0x80 // always recover from errors
)

const invalidateLength = 100

// CommandBuffer accumulates a printer job as raw command bytes. Create one
// per job; configuration commands must precede raster data.
type CommandBuffer struct {
	buf        bytes.Buffer
	compressed bool
}

// NewCommandBuffer returns a buffer primed with the invalidate sequence,
// initialize (ESC @) and the switch to raster mode (ESC i a 01).
func NewCommandBuffer() *CommandBuffer {
	c := &CommandBuffer{}
	c.buf.Write(make([]byte, invalidateLength))
	c.buf.Write([]byte{esc, 0x40})             // initialize
	c.buf.Write([]byte{esc, 0x69, 0x61, 0x01}) // raster mode
	return c
}

// SetPrinterInfo writes the print information command (ESC i z) carrying
// the tape width in millimeters. Must be the first configuration call.
func (c *CommandBuffer) SetPrinterInfo(tapeSizeMM int) {
	c.buf.Write([]byte{
		esc, 0x69, 0x7A,
		piWidth | piRecover,
		0x00,             // media type: unspecified
		byte(tapeSizeMM), // media width, mm
		0x00,             // media length: unspecified
		0x00, 0x00, 0x00, 0x00, // raster count: unspecified
		0x00, // first page
		0x00,
	})
}

// SetCutMode enables or disables automatic cutting (ESC i M).
func (c *CommandBuffer) SetCutMode(autoCut bool) {
	var mode byte
	if autoCut {
		mode = flagAutoCut
	}
	c.buf.Write([]byte{esc, 0x69, 0x4D, mode})
}

// SetCutInterval sets the cut-every-N-labels count (ESC i A). Only
// meaningful when auto cut is enabled.
func (c *CommandBuffer) SetCutInterval(pages int) {
	c.buf.Write([]byte{esc, 0x69, 0x41, byte(pages)})
}

// SetAdvancedOptions writes the advanced mode settings (ESC i K). Chain
// printing is expressed inverted on the wire: the flag suppresses the
// trailing feed when cleared.
func (c *CommandBuffer) SetAdvancedOptions(halfCut, chainPrinting bool) {
	var mode byte
	if halfCut {
		mode |= flagHalfCut
	}
	if !chainPrinting {
		mode |= flagNoChainPrinting
	}
	c.buf.Write([]byte{esc, 0x69, 0x4B, mode})
}

// SetMargin sets the feed margin in dots (ESC i d, little endian).
func (c *CommandBuffer) SetMargin(margin int) {
	c.buf.Write([]byte{esc, 0x69, 0x64, byte(margin), byte(margin >> 8)})
}

// SetCompressionMode enables TIFF/PackBits compression for raster transfer
// (M 02). Raster lines appended afterwards are packed.
func (c *CommandBuffer) SetCompressionMode() {
	c.buf.Write([]byte{0x4D, 0x02})
	c.compressed = true
}

// AddImage appends every raster line of one page. Blank lines are encoded
// as the zero raster command (Z) which costs a single byte.
func (c *CommandBuffer) AddImage(img *RasterImage) {
	for _, line := range img.Lines() {
		if line == nil {
			c.buf.WriteByte(0x5A) // Z: zero raster line
			continue
		}
		data := line
		if c.compressed {
			data = packBits(line)
		}
		c.buf.Write([]byte{0x47, byte(len(data)), byte(len(data) >> 8)}) // G
		c.buf.Write(data)
	}
}

// AddPageBreak prints the accumulated page without feeding, separating it
// from the page that follows (FF).
func (c *CommandBuffer) AddPageBreak() {
	c.buf.WriteByte(ff)
}

// Eject prints the final page and feeds the tape (SUB). Appended exactly
// once, as the last command of a job.
func (c *CommandBuffer) Eject() {
	c.buf.WriteByte(sub)
}

// Bytes returns the accumulated command stream.
func (c *CommandBuffer) Bytes() []byte {
	return c.buf.Bytes()
}

// Len returns the current size of the command stream in bytes.
func (c *CommandBuffer) Len() int {
	return c.buf.Len()
}

// WriteHexDump renders the command stream as 16-byte hex rows with an
// offset column, for diagnostics.
func (c *CommandBuffer) WriteHexDump(w io.Writer) error {
	data := c.buf.Bytes()
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		if _, err := fmt.Fprintf(w, "%08x ", off); err != nil {
			return err
		}
		for _, b := range data[off:end] {
			if _, err := fmt.Fprintf(w, " %02x", b); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
