package insole

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gaitworks/plantar.report/internal/timeutil"
)

// Decoder drives the frame scanner over incoming byte chunks, validates
// and decodes completed frames, publishes valid samples to the latest-
// sample store, and fans events out to registered handlers and channel
// subscribers.
//
// Handler callbacks run synchronously within Feed, in registration
// order; they must not block the decode loop for long. Channel
// subscribers receive non-blocking sends and may miss samples if they
// fall behind.
type Decoder struct {
	scanner *FrameScanner
	store   *Store
	clock   timeutil.Clock

	mu             sync.Mutex
	frameHandlers  []func(PressureSample)
	errorHandlers  []func()
	subscribers    map[string]chan PressureSample
	validFrames    uint64
	checksumErrors uint64
}

// NewDecoder returns a decoder stamping samples with the given clock.
func NewDecoder(clock timeutil.Clock) *Decoder {
	d := &Decoder{
		store:       &Store{},
		clock:       clock,
		subscribers: make(map[string]chan PressureSample),
	}
	d.scanner = NewFrameScanner(d.handleFrame)
	return d
}

// OnFrame registers a handler invoked for every validated sample.
func (d *Decoder) OnFrame(fn func(PressureSample)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frameHandlers = append(d.frameHandlers, fn)
}

// OnChecksumError registers a handler invoked for every completed frame
// that fails checksum validation.
func (d *Decoder) OnChecksumError(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errorHandlers = append(d.errorHandlers, fn)
}

// Subscribe creates a buffered channel receiving each validated sample.
// The returned ID identifies the channel when unsubscribing.
func (d *Decoder) Subscribe() (string, chan PressureSample) {
	id := uuid.NewString()
	ch := make(chan PressureSample, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a sample channel.
func (d *Decoder) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

// Feed consumes a chunk of raw bytes from the serial stream. An empty
// chunk is a no-op, not an error.
func (d *Decoder) Feed(chunk []byte) {
	d.scanner.Feed(chunk)
}

// handleFrame processes one completed candidate frame. Exactly one
// terminal event fires per frame: a validated sample or a checksum
// error. A checksum failure leaves the previous sample untouched.
func (d *Decoder) handleFrame(f RawFrame) {
	if !f.Valid() {
		d.mu.Lock()
		d.checksumErrors++
		handlers := d.errorHandlers
		d.mu.Unlock()
		for _, fn := range handlers {
			fn()
		}
		return
	}

	sample := f.Decode(d.clock.Now())
	d.store.Publish(sample)

	d.mu.Lock()
	d.validFrames++
	handlers := d.frameHandlers
	subs := make([]chan PressureSample, 0, len(d.subscribers))
	for _, ch := range d.subscribers {
		subs = append(subs, ch)
	}
	d.mu.Unlock()

	for _, fn := range handlers {
		fn(sample)
	}
	for _, ch := range subs {
		select {
		case ch <- sample:
		default:
			// slow subscriber; drop rather than stall the decode path
		}
	}
}

// Current returns a snapshot of the latest valid sample.
func (d *Decoder) Current() PressureSample {
	return d.store.Current()
}

// HasSample reports whether any valid frame has been decoded yet.
func (d *Decoder) HasSample() bool {
	return d.store.HasSample()
}

// PointValue returns the latest value for one-based sensor position n.
func (d *Decoder) PointValue(n int) uint16 {
	return d.store.PointValue(n)
}

// Stats returns counts of validated frames and checksum failures.
func (d *Decoder) Stats() (valid, checksumErrors uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validFrames, d.checksumErrors
}
