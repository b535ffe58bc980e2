package serialmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for dev mode, replaying a
// recorded byte stream as if the insole were attached.
type MockSerialPort struct {
	io.Reader
	writeMu sync.Mutex
	written bytes.Buffer
	closed  bool
}

func (m *MockSerialPort) Write(p []byte) (int, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if m.closed {
		return 0, errors.New("mock serial port closed")
	}
	return m.written.Write(p)
}

func (m *MockSerialPort) Close() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.closed = true
	return nil
}

// Written returns all bytes sent to the mock device.
func (m *MockSerialPort) Written() []byte {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.written.Bytes()
}

// NewMockSerialMux creates a SerialMux backed by a mock serial port that
// replays the given byte stream in a loop, one slice of chunkSize bytes
// per interval. The stream is typically a sequence of recorded or
// generated insole frames.
func NewMockSerialMux(stream []byte, chunkSize int, interval time.Duration) *SerialMux[*MockSerialPort] {
	if chunkSize <= 0 {
		chunkSize = readChunkSize
	}
	r, w := io.Pipe()

	mockPort := &MockSerialPort{Reader: r}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		offset := 0
		for range ticker.C {
			end := offset + chunkSize
			if end > len(stream) {
				end = len(stream)
			}
			if _, err := w.Write(stream[offset:end]); err != nil {
				return
			}
			offset = end
			if offset >= len(stream) {
				offset = 0
			}
		}
	}()

	return NewSerialMux(mockPort)
}

// TestableSerialPort implements SerialPorter with configurable behaviour
// for unit tests: scripted reads, captured writes, and injected errors.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set.
	ReadError error

	// WriteError is returned by the next Write call if set.
	WriteError error

	// Closed indicates whether Close was called.
	Closed bool

	// BlockReads causes Read to block until data arrives or Close.
	BlockReads bool

	// ReadTimeout records the last SetReadTimeout value.
	ReadTimeout time.Duration

	readCond *sync.Cond
}

// NewTestableSerialPort creates a TestableSerialPort.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, io.EOF
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.BlockReads && t.ReadBuffer.Len() == 0 {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, io.EOF
		}
	}

	return t.ReadBuffer.Read(p)
}

func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	return t.WriteBuffer.Write(p)
}

func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()
	return nil
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData appends data for subsequent Read calls and wakes blocked
// readers.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// WrittenData returns all data written to the port.
func (t *TestableSerialPort) WrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}
