package ptouch

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

const (
	// The print head has 128 pins, so one raster line is 16 bytes.
	headPins      = 128
	bytesPerLine  = headPins / 8
	lumaThreshold = 0x8000 // 50% of the 16-bit luminance range
)

var ErrUnsupportedTapeSize = errors.New("unsupported tape size")

// printableDots maps tape width in millimeters to the number of head pins
// that actually reach the tape. Narrow tapes use the center of the head.
var printableDots = map[int]int{
	4:  24,
	6:  32,
	9:  50,
	12: 70,
	18: 112,
	24: 128,
}

// PrintableDots returns the printable dot span for the given tape width.
func PrintableDots(tapeSizeMM int) (int, error) {
	dots, ok := printableDots[tapeSizeMM]
	if !ok {
		return 0, fmt.Errorf("%w: %d mm", ErrUnsupportedTapeSize, tapeSizeMM)
	}
	return dots, nil
}

// RasterImage is one page of monochrome raster lines ready for the command
// buffer. Lines run along the tape: each source image column becomes one
// 16-byte line across the print head, so the image height is scaled to the
// tape's printable dot span.
type RasterImage struct {
	lines [][]byte
}

// NewRasterImage converts img into raster lines for the given tape width.
// Pixels darker than 50% luminance print black. An all-white column yields
// a nil line, which the command buffer encodes as a zero raster line.
func NewRasterImage(img image.Image, tapeSizeMM int) (*RasterImage, error) {
	dots, err := PrintableDots(tapeSizeMM)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errors.New("image is empty")
	}

	scaled := img
	if bounds.Dy() != dots {
		w := bounds.Dx() * dots / bounds.Dy()
		if w < 1 {
			w = 1
		}
		dst := image.NewGray(image.Rect(0, 0, w, dots))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		scaled = dst
	}

	// Center the printable span on the head.
	offset := (headPins - dots) / 2

	sb := scaled.Bounds()
	lines := make([][]byte, 0, sb.Dx())
	for x := sb.Min.X; x < sb.Max.X; x++ {
		var line []byte
		for y := sb.Min.Y; y < sb.Max.Y; y++ {
			if !isBlack(scaled.At(x, y)) {
				continue
			}
			if line == nil {
				line = make([]byte, bytesPerLine)
			}
			pin := offset + (y - sb.Min.Y)
			line[pin/8] |= 0x80 >> (pin % 8)
		}
		lines = append(lines, line)
	}

	return &RasterImage{lines: lines}, nil
}

// Lines returns the raster lines in print order. A nil entry is a blank line.
func (r *RasterImage) Lines() [][]byte {
	return r.lines
}

// Length returns the number of raster lines, i.e. the label length in dots.
func (r *RasterImage) Length() int {
	return len(r.lines)
}

func isBlack(c color.Color) bool {
	_, _, _, a := c.RGBA()
	if a == 0 {
		return false
	}
	y := color.Gray16Model.Convert(c).(color.Gray16)
	return uint32(y.Y) < lumaThreshold
}
