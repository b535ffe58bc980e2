// Package insole implements the wire protocol for an 18-point plantar
// pressure insole: locating frame boundaries in a raw serial byte stream,
// validating frame checksums, and decoding frames into pressure samples.
package insole

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"
)

// Insole frame structure constants. The sensor emits fixed 39-byte frames
// with no length field; framing relies entirely on the header sentinel and
// the trailing checksum.
const (
	FrameSize      = 39   // Total frame length in bytes
	HeaderByte     = 0xAA // Header sentinel at offset 0
	PointCount     = 18   // Number of pressure points per frame
	sideOffset     = 1    // Foot-side tag byte
	payloadOffset  = 2    // First byte of the 36-byte point payload
	checksumOffset = 38   // Trailing checksum byte
)

// Foot-side tag bytes as sent on the wire.
const (
	tagLeft  = 0x01
	tagRight = 0x02
)

// FootSide identifies which physical insole produced a frame.
type FootSide uint8

const (
	FootUnknown FootSide = iota
	FootLeft
	FootRight
)

func (s FootSide) String() string {
	switch s {
	case FootLeft:
		return "left"
	case FootRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseFootSide maps an API/config string to a FootSide.
func ParseFootSide(v string) (FootSide, error) {
	switch v {
	case "left":
		return FootLeft, nil
	case "right":
		return FootRight, nil
	case "unknown", "":
		return FootUnknown, nil
	default:
		return FootUnknown, fmt.Errorf("unknown foot side %q", v)
	}
}

// MarshalJSON renders the side as its string form in API payloads.
func (s FootSide) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *FootSide) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseFootSide(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// RawFrame is one complete 39-byte candidate frame as collected off the
// wire. It is transient: scoped to a single decode attempt and discarded
// after checksum validation and parsing regardless of outcome.
type RawFrame [FrameSize]byte

// Checksum computes the modulo-256 sum over bytes 0..37. The result must
// equal byte 38 for the frame to be accepted.
func (f RawFrame) Checksum() byte {
	var sum byte
	for _, b := range f[:checksumOffset] {
		sum += b
	}
	return sum
}

// Valid reports whether the trailing checksum byte matches the computed
// payload checksum. Pure and deterministic for identical input.
func (f RawFrame) Valid() bool {
	return f.Checksum() == f[checksumOffset]
}

// Decode extracts the foot-side tag and the 18 big-endian point values
// from a checksum-validated frame. Decode never fails: a tag byte outside
// the known values degrades to FootUnknown rather than an error.
func (f RawFrame) Decode(at time.Time) PressureSample {
	s := PressureSample{CapturedAt: at}

	switch f[sideOffset] {
	case tagLeft:
		s.Side = FootLeft
	case tagRight:
		s.Side = FootRight
	default:
		s.Side = FootUnknown
	}

	for i := 0; i < PointCount; i++ {
		off := payloadOffset + 2*i
		s.Points[i] = binary.BigEndian.Uint16(f[off : off+2])
	}
	return s
}

// EncodeFrame builds a wire frame for the given side and point values,
// including a correct checksum. Used by the mock serial source, the
// fixture generator, and tests.
func EncodeFrame(side FootSide, points [PointCount]uint16) RawFrame {
	var f RawFrame
	f[0] = HeaderByte

	switch side {
	case FootLeft:
		f[sideOffset] = tagLeft
	case FootRight:
		f[sideOffset] = tagRight
	default:
		f[sideOffset] = 0x00
	}

	for i, p := range points {
		binary.BigEndian.PutUint16(f[payloadOffset+2*i:], p)
	}
	f[checksumOffset] = f.Checksum()
	return f
}

// PressureSample is one validated reading from the insole: the foot-side
// tag and the 18 raw point magnitudes, stamped at decode time. Points is a
// fixed-size array so whole-sample copies are cheap and never torn.
type PressureSample struct {
	Side       FootSide           `json:"foot_side"`
	Points     [PointCount]uint16 `json:"points"`
	CapturedAt time.Time          `json:"captured_at"`
}

// PointValue returns the value for one-based sensor position n, or 0 when
// n is outside [1, PointCount].
func (s PressureSample) PointValue(n int) uint16 {
	if n < 1 || n > PointCount {
		return 0
	}
	return s.Points[n-1]
}
