package ptouch

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// statusBlock builds a zeroed 32-byte status response and applies overrides.
func statusBlock(set map[int]byte) []byte {
	resp := make([]byte, StatusLength)
	resp[0] = 0x80 // print head mark
	resp[1] = 0x20 // size
	for i, b := range set {
		resp[i] = b
	}
	return resp
}

func TestParseStatusShortResponse(t *testing.T) {
	_, err := ParseStatus(make([]byte, 16))
	if !errors.Is(err, ErrShortStatus) {
		t.Fatalf("ParseStatus(16 bytes) error = %v, want ErrShortStatus", err)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name string
		set  map[int]byte
		want *Status
	}{
		{
			name: "idle with 12mm laminated tape",
			set:  map[int]byte{4: 0x59, 10: 12, 11: 0x01},
			want: &Status{
				Model:      0x59,
				ErrorInfo1: "none",
				ErrorInfo2: "none",
				MediaWidth: 12,
				MediaType:  "laminated",
				StatusType: "reply",
			},
		},
		{
			name: "no media error",
			set:  map[int]byte{8: 0x01, 18: 0x02},
			want: &Status{
				ErrorInfo1: "no_media",
				ErrorInfo2: "none",
				MediaType:  "none",
				StatusType: "error",
				HasError:   true,
			},
		},
		{
			name: "combined error flags",
			set:  map[int]byte{8: 0x02, 9: 0x11},
			want: &Status{
				ErrorInfo1: "end_of_media",
				ErrorInfo2: "replace_media,cover_open",
				MediaType:  "none",
				StatusType: "reply",
				HasError:   true,
			},
		},
		{
			name: "printing completed with phase",
			set:  map[int]byte{10: 18, 11: 0x03, 18: 0x01, 19: 0x01},
			want: &Status{
				ErrorInfo1: "none",
				ErrorInfo2: "none",
				MediaWidth: 18,
				MediaType:  "non_laminated",
				StatusType: "printing_completed",
				PhaseType:  0x01,
			},
		},
		{
			name: "unknown media and status",
			set:  map[int]byte{11: 0x77, 18: 0x77},
			want: &Status{
				ErrorInfo1: "none",
				ErrorInfo2: "none",
				MediaType:  "unknown",
				StatusType: "unknown",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(statusBlock(tt.set))
			if err != nil {
				t.Fatalf("ParseStatus: %v", err)
			}
			diff := cmp.Diff(tt.want, got,
				cmpopts.IgnoreFields(Status{}, "Raw"))
			if diff != "" {
				t.Errorf("ParseStatus mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlagNamesUnknownBit(t *testing.T) {
	got := flagNames(0x20, errorInfo1Map)
	if got != "bit_20" {
		t.Errorf("flagNames(0x20) = %q, want bit_20", got)
	}
}
