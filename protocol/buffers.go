package protocol

// OutputBuffer provides an abstraction for building outgoing packets
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data ...byte)

	// CurPosition returns the current write position
	CurPosition() int

	// Update modifies a byte at a specific position
	Update(pos int, val byte)

	// DataSince returns data from a specific position to current
	DataSince(pos int) []byte
}

var _ OutputBuffer = (*ScratchOutput)(nil)

// SliceInputBuffer hands out the bytes of a received payload one at a time
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer creates a new SliceInputBuffer
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

// Next pops and returns the first byte; ok is false when the buffer is empty
func (s *SliceInputBuffer) Next() (b byte, ok bool) {
	if len(s.data) == 0 {
		return 0, false
	}
	b = s.data[0]
	s.data = s.data[1:]
	return b, true
}

// ScratchOutput implements OutputBuffer on a growable slice. Packets are
// assembled in place, with header fields patched through Update once the
// payload is known.
type ScratchOutput struct {
	buf []byte
}

// NewScratchOutput creates a new ScratchOutput with room for capacity bytes
func NewScratchOutput(capacity int) *ScratchOutput {
	return &ScratchOutput{buf: make([]byte, 0, capacity)}
}

func (s *ScratchOutput) Output(data ...byte) {
	s.buf = append(s.buf, data...)
}

func (s *ScratchOutput) CurPosition() int {
	return len(s.buf)
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < len(s.buf) {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > len(s.buf) {
		return nil
	}
	return s.buf[pos:]
}

// Result returns a copy of the accumulated output data
func (s *ScratchOutput) Result() []byte {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.buf = s.buf[:0]
}
