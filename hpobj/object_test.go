package hpobj

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func objectFile(header string, n Nibbles) []byte {
	return append([]byte(header), n.Bytes()...)
}

func TestParseFile(t *testing.T) {
	n := bint(0x12345)
	d, err := ParseFile(objectFile("HPHP48-R", n))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}

	want := &ObjectDescriptor{ROMRevision: 'R', Checksum: Checksum(n), Length: 10}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFileOddLength(t *testing.T) {
	n := zeroReal()
	data := objectFile("HPHP48-E", n)
	if len(data) != 8+11 {
		t.Fatalf("object file is %d bytes", len(data))
	}

	d, err := ParseFile(data)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if d.Length != 21 {
		t.Errorf("Length = %d, want 21", d.Length)
	}
	// the pad nibble is not part of the checksum
	if d.Checksum != Checksum(n) {
		t.Errorf("Checksum = 0x%04X, want 0x%04X", d.Checksum, Checksum(n))
	}
	if got := d.ByteLength(); got != "10.5" {
		t.Errorf("ByteLength = %q, want 10.5", got)
	}
}

func TestParseFileErrors(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{name: "HP 49", data: objectFile("HPHP49-X", bint(1)), want: ErrUnsupportedFormat},
		{name: "text file", data: []byte("%%HP: T(3)A(R)F(.);"), want: ErrUnsupportedFormat},
		{name: "empty", data: nil, want: ErrUnsupportedFormat},
		{name: "signature only", data: []byte("HPHP48"), want: ErrTruncatedObject},
		{name: "no object", data: []byte("HPHP48-R"), want: ErrTruncatedObject},
		{name: "unknown object", data: objectFile("HPHP48-R", Nibbles{0, 0, 0, 0, 0, 0}), want: ErrUnrecognizedPrologue},
	}

	for _, tc := range testCases {
		d, err := ParseFile(tc.data)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: ParseFile error = %v, want %v", tc.name, err, tc.want)
		}
		if d != nil {
			t.Errorf("%s: ParseFile returned a descriptor along with an error", tc.name)
		}
	}
}

func TestReport(t *testing.T) {
	testCases := []struct {
		d    ObjectDescriptor
		want string
	}{
		{
			d:    ObjectDescriptor{ROMRevision: 'R', Checksum: 0xA2F, Length: 10},
			want: "ROM Revision: R, Object CRC: #A2Fh, Object length (bytes): 5",
		},
		{
			d:    ObjectDescriptor{ROMRevision: 'M', Checksum: 0xBEEF, Length: 21},
			want: "ROM Revision: M, Object CRC: #BEEFh, Object length (bytes): 10.5",
		},
		{
			d:    ObjectDescriptor{ROMRevision: 'E', Checksum: 0, Length: 10},
			want: "ROM Revision: E, Object CRC: #0h, Object length (bytes): 5",
		},
	}

	for _, tc := range testCases {
		if diff := cmp.Diff(tc.want, tc.d.Report()); diff != "" {
			t.Errorf("Report mismatch (-want +got):\n%s", diff)
		}
	}
}
