package ptouch

import (
	"image"
	"image/color"
	"testing"
)

func TestPrintableDots(t *testing.T) {
	tests := []struct {
		tapeSizeMM int
		want       int
		wantErr    bool
	}{
		{4, 24, false},
		{6, 32, false},
		{9, 50, false},
		{12, 70, false},
		{18, 112, false},
		{24, 128, false},
		{36, 0, true},
		{0, 0, true},
	}

	for _, tt := range tests {
		got, err := PrintableDots(tt.tapeSizeMM)
		if tt.wantErr {
			if err == nil {
				t.Errorf("PrintableDots(%d): want error", tt.tapeSizeMM)
			}
			continue
		}
		if err != nil {
			t.Errorf("PrintableDots(%d): %v", tt.tapeSizeMM, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PrintableDots(%d) = %d, want %d", tt.tapeSizeMM, got, tt.want)
		}
	}
}

// whiteImage returns an all-white grayscale image.
func whiteImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	return img
}

func TestNewRasterImageUnsupportedTape(t *testing.T) {
	if _, err := NewRasterImage(whiteImage(4, 4), 36); err == nil {
		t.Fatal("want error for unsupported tape size")
	}
}

func TestNewRasterImageEmpty(t *testing.T) {
	if _, err := NewRasterImage(image.NewGray(image.Rect(0, 0, 0, 0)), 12); err == nil {
		t.Fatal("want error for empty image")
	}
}

func TestNewRasterImageColumnsBecomeLines(t *testing.T) {
	// Height already matches the 24 mm dot span, so no scaling happens and
	// each of the 10 columns maps directly to one raster line.
	img := whiteImage(10, 128)
	r, err := NewRasterImage(img, 24)
	if err != nil {
		t.Fatalf("NewRasterImage: %v", err)
	}
	if r.Length() != 10 {
		t.Fatalf("Length() = %d, want 10", r.Length())
	}
	for i, line := range r.Lines() {
		if line != nil {
			t.Errorf("line %d not blank: % x", i, line)
		}
	}
}

func TestNewRasterImagePinMapping(t *testing.T) {
	img := whiteImage(3, 128)
	img.SetGray(1, 0, color.Gray{0})   // first pin
	img.SetGray(1, 127, color.Gray{0}) // last pin

	r, err := NewRasterImage(img, 24)
	if err != nil {
		t.Fatalf("NewRasterImage: %v", err)
	}

	lines := r.Lines()
	if lines[0] != nil || lines[2] != nil {
		t.Error("blank columns should yield nil lines")
	}
	line := lines[1]
	if line == nil {
		t.Fatal("column with pixels yielded nil line")
	}
	if line[0] != 0x80 {
		t.Errorf("first byte = %#x, want 0x80", line[0])
	}
	if line[bytesPerLine-1] != 0x01 {
		t.Errorf("last byte = %#x, want 0x01", line[bytesPerLine-1])
	}
}

func TestNewRasterImageCentersNarrowTape(t *testing.T) {
	// A 9 mm tape prints 50 dots on a 128 pin head, offset (128-50)/2 = 39.
	img := whiteImage(1, 50)
	img.SetGray(0, 0, color.Gray{0})

	r, err := NewRasterImage(img, 9)
	if err != nil {
		t.Fatalf("NewRasterImage: %v", err)
	}

	line := r.Lines()[0]
	if line == nil {
		t.Fatal("column yielded nil line")
	}
	pin := 39
	wantByte := pin / 8
	wantBit := byte(0x80) >> (pin % 8)
	if line[wantByte] != wantBit {
		t.Errorf("byte %d = %#08b, want %#08b", wantByte, line[wantByte], wantBit)
	}
	for i, b := range line {
		if i != wantByte && b != 0 {
			t.Errorf("byte %d = %#x, want 0", i, b)
		}
	}
}

func TestNewRasterImageScalesHeight(t *testing.T) {
	// 256 pixels tall on a 24 mm tape halves to 128 dots; width scales by
	// the same factor.
	img := whiteImage(40, 256)
	r, err := NewRasterImage(img, 24)
	if err != nil {
		t.Fatalf("NewRasterImage: %v", err)
	}
	if r.Length() != 20 {
		t.Errorf("Length() = %d, want 20", r.Length())
	}
}

func TestIsBlack(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want bool
	}{
		{"black", color.Black, true},
		{"white", color.White, false},
		{"dark gray", color.Gray{0x40}, true},
		{"light gray", color.Gray{0xC0}, false},
		{"transparent", color.NRGBA{0, 0, 0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBlack(tt.c); got != tt.want {
				t.Errorf("isBlack(%v) = %v, want %v", tt.c, got, tt.want)
			}
		})
	}
}
