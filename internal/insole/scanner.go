package insole

// scanState tracks whether the scanner is hunting for a header byte or
// filling the current frame buffer.
type scanState int

const (
	stateIdle scanState = iota
	stateCollecting
)

// FrameScanner is a single-frame look-ahead synchronizer over an
// unreliable byte stream. It accumulates bytes into a fixed 39-byte
// buffer starting at each header sentinel and hands every completed
// candidate frame to the callback, valid or not. It does not buffer
// multiple pending frames: a spurious 0xAA inside a payload that gets
// mistaken for a header desynchronizes parsing until the next genuine
// header arrives.
type FrameScanner struct {
	state   scanState
	buf     RawFrame
	fill    int
	onFrame func(RawFrame)
}

// NewFrameScanner returns a scanner that invokes onFrame for each
// completed 39-byte candidate frame. onFrame runs synchronously within
// Feed.
func NewFrameScanner(onFrame func(RawFrame)) *FrameScanner {
	return &FrameScanner{onFrame: onFrame}
}

// Feed consumes a byte chunk of arbitrary length, possibly empty.
// Accumulation state persists across calls, so a frame may span any
// number of chunks.
func (s *FrameScanner) Feed(chunk []byte) {
	for _, b := range chunk {
		s.feedByte(b)
	}
}

func (s *FrameScanner) feedByte(b byte) {
	if s.state == stateIdle {
		if b == HeaderByte {
			s.buf[0] = b
			s.fill = 1
			s.state = stateCollecting
		}
		return
	}

	// A repeated header sentinel before any payload byte restarts the
	// frame at the later header, discarding the earlier attempt.
	if s.fill == 1 && b == HeaderByte {
		return
	}

	s.buf[s.fill] = b
	s.fill++
	if s.fill == FrameSize {
		frame := s.buf
		s.state = stateIdle
		s.fill = 0
		s.onFrame(frame)
	}
}

// Collecting reports whether the scanner is mid-frame. Exposed for
// diagnostics only.
func (s *FrameScanner) Collecting() bool {
	return s.state == stateCollecting
}
