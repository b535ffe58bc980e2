package insole

import "testing"

func collectFrames(t *testing.T) (*FrameScanner, *[]RawFrame) {
	t.Helper()
	frames := &[]RawFrame{}
	s := NewFrameScanner(func(f RawFrame) {
		*frames = append(*frames, f)
	})
	return s, frames
}

func TestScannerSingleFrame(t *testing.T) {
	s, frames := collectFrames(t)
	frame := EncodeFrame(FootLeft, testPoints())

	s.Feed(frame[:])

	if len(*frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(*frames))
	}
	if (*frames)[0] != frame {
		t.Error("scanned frame differs from input")
	}
	if s.Collecting() {
		t.Error("scanner should be idle after a complete frame")
	}
}

func TestScannerFrameSpansChunks(t *testing.T) {
	s, frames := collectFrames(t)
	frame := EncodeFrame(FootRight, testPoints())

	// single-byte chunks, worst case for chunk boundaries
	for _, b := range frame {
		s.Feed([]byte{b})
	}

	if len(*frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(*frames))
	}
	if (*frames)[0] != frame {
		t.Error("scanned frame differs from input")
	}
}

func TestScannerSkipsGarbagePrefix(t *testing.T) {
	s, frames := collectFrames(t)
	frame := EncodeFrame(FootLeft, testPoints())

	stream := append([]byte{0x00, 0x13, 0x37, 0xFE}, frame[:]...)
	s.Feed(stream)

	if len(*frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(*frames))
	}
	if (*frames)[0] != frame {
		t.Error("scanned frame differs from input")
	}
}

func TestScannerBackToBackFrames(t *testing.T) {
	s, frames := collectFrames(t)
	left := EncodeFrame(FootLeft, testPoints())
	right := EncodeFrame(FootRight, testPoints())

	stream := append(left[:], right[:]...)
	s.Feed(stream)

	if len(*frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(*frames))
	}
	if (*frames)[0] != left || (*frames)[1] != right {
		t.Error("frames decoded out of order or corrupted")
	}
}

func TestScannerRepeatedHeaderRestartsFrame(t *testing.T) {
	s, frames := collectFrames(t)
	frame := EncodeFrame(FootLeft, testPoints())

	// A stray header byte immediately before a genuine frame: the
	// scanner restarts at the later header and still yields one valid
	// frame instead of a misaligned invalid one.
	stream := append([]byte{HeaderByte}, frame[:]...)
	s.Feed(stream)

	if len(*frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(*frames))
	}
	if !(*frames)[0].Valid() {
		t.Error("frame after repeated header should validate")
	}
}

func TestScannerEmptyFeed(t *testing.T) {
	s, frames := collectFrames(t)
	s.Feed(nil)
	s.Feed([]byte{})

	if len(*frames) != 0 {
		t.Errorf("got %d frames, want 0", len(*frames))
	}
	if s.Collecting() {
		t.Error("scanner should stay idle on empty input")
	}
}

func TestScannerIgnoresNonHeaderWhenIdle(t *testing.T) {
	s, frames := collectFrames(t)

	s.Feed(make([]byte, 1000)) // zeroes never start a frame

	if len(*frames) != 0 {
		t.Errorf("got %d frames, want 0", len(*frames))
	}
}

func TestScannerDeliversInvalidFrames(t *testing.T) {
	s, frames := collectFrames(t)
	frame := EncodeFrame(FootLeft, testPoints())
	frame[20] ^= 0xFF // breaks the checksum, keeps the length

	s.Feed(frame[:])

	// The scanner's contract is framing, not validation: corrupted
	// candidates still reach the callback.
	if len(*frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(*frames))
	}
	if (*frames)[0].Valid() {
		t.Error("corrupted frame should fail validation")
	}
}
