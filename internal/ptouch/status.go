package ptouch

import (
	"errors"
	"fmt"
)

// StatusRequest is the status information request (ESC i S). The printer
// answers with a 32-byte status block.
var StatusRequest = []byte{esc, 0x69, 0x53}

// StatusLength is the size of the printer's status response.
const StatusLength = 32

var ErrShortStatus = errors.New("short status response")

// Status is the decoded 32-byte status block.
type Status struct {
	Raw        [StatusLength]byte
	Model      byte
	ErrorInfo1 string
	ErrorInfo2 string
	MediaWidth int // millimeters
	MediaType  string
	StatusType string
	PhaseType  byte
	HasError   bool
}

var errorInfo1Map = map[byte]string{
	0x01: "no_media",
	0x02: "end_of_media",
	0x04: "cutter_jam",
	0x10: "printer_in_use",
	0x40: "high_voltage_adapter",
}

var errorInfo2Map = map[byte]string{
	0x01: "replace_media",
	0x04: "transmission_error",
	0x10: "cover_open",
	0x40: "cannot_feed",
	0x80: "system_error",
}

var mediaTypeMap = map[byte]string{
	0x00: "none",
	0x01: "laminated",
	0x03: "non_laminated",
	0x11: "heat_shrink",
	0xFF: "incompatible",
}

var statusTypeMap = map[byte]string{
	0x00: "reply",
	0x01: "printing_completed",
	0x02: "error",
	0x05: "notification",
	0x06: "phase_change",
}

// ParseStatus decodes a raw status response.
func ParseStatus(resp []byte) (*Status, error) {
	if len(resp) < StatusLength {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortStatus, len(resp), StatusLength)
	}

	s := &Status{
		Model:      resp[4],
		MediaWidth: int(resp[10]),
		PhaseType:  resp[19],
	}
	copy(s.Raw[:], resp)

	s.ErrorInfo1 = flagNames(resp[8], errorInfo1Map)
	s.ErrorInfo2 = flagNames(resp[9], errorInfo2Map)
	s.HasError = resp[8] != 0 || resp[9] != 0

	if mt, ok := mediaTypeMap[resp[11]]; ok {
		s.MediaType = mt
	} else {
		s.MediaType = "unknown"
	}

	if st, ok := statusTypeMap[resp[18]]; ok {
		s.StatusType = st
	} else {
		s.StatusType = "unknown"
	}

	return s, nil
}

// flagNames joins the names of the set bits in b, or "none" if clear.
func flagNames(b byte, names map[byte]string) string {
	if b == 0 {
		return "none"
	}
	out := ""
	for bit := byte(0x01); bit != 0; bit <<= 1 {
		if b&bit == 0 {
			continue
		}
		name, ok := names[bit]
		if !ok {
			name = fmt.Sprintf("bit_%02x", bit)
		}
		if out != "" {
			out += ","
		}
		out += name
	}
	return out
}
