package serialmux

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// shortWritePort reports fewer bytes written than requested.
type shortWritePort struct {
	*TestableSerialPort
}

func (p *shortWritePort) Write(b []byte) (int, error) {
	n, err := p.TestableSerialPort.Write(b)
	if err != nil {
		return n, err
	}
	return n - 1, nil
}

func TestSubscribeUnsubscribe(t *testing.T) {
	mux := NewSerialMux(NewTestableSerialPort())

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()

	if id1 == id2 {
		t.Error("subscriber IDs should be unique")
	}
	if ch1 == ch2 {
		t.Error("subscribers should get distinct channels")
	}

	mux.Unsubscribe(id1)
	if _, open := <-ch1; open {
		t.Error("channel should be closed after Unsubscribe")
	}

	// unsubscribing an unknown ID is a no-op
	mux.Unsubscribe("not-a-subscriber")
	mux.Unsubscribe(id1)

	select {
	case _, open := <-ch2:
		if !open {
			t.Error("unrelated subscriber channel should stay open")
		}
	default:
	}
}

func TestSendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	command := []byte{0xAA, 0x01, 0xFF}
	if err := mux.SendCommand(command); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}

	if !bytes.Equal(port.WrittenData(), command) {
		t.Errorf("written = %x, want %x", port.WrittenData(), command)
	}
}

func TestSendCommandWriteError(t *testing.T) {
	port := NewTestableSerialPort()
	port.WriteError = errors.New("device gone")
	mux := NewSerialMux(port)

	if err := mux.SendCommand([]byte{0x01}); err == nil {
		t.Error("expected write error to propagate")
	}
}

func TestSendCommandShortWrite(t *testing.T) {
	port := &shortWritePort{NewTestableSerialPort()}
	mux := NewSerialMux(port)

	err := mux.SendCommand([]byte{0x01, 0x02})
	if !errors.Is(err, ErrWriteFailed) {
		t.Errorf("err = %v, want ErrWriteFailed", err)
	}
}

func TestMonitorFansOutChunks(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- mux.Monitor(ctx) }()

	_, ch1 := mux.Subscribe()
	_, ch2 := mux.Subscribe()

	payload := []byte{0xAA, 0x01, 0x02, 0x03}
	port.AddReadData(payload)

	for i, ch := range []chan []byte{ch1, ch2} {
		select {
		case chunk := <-ch:
			if !bytes.Equal(chunk, payload) {
				t.Errorf("subscriber %d got %x, want %x", i+1, chunk, payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive a chunk", i+1)
		}
	}

	cancel()
	select {
	case err := <-monitorDone:
		if err != context.Canceled {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop on cancellation")
	}
}

func TestMonitorSetsReadTimeout(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	go mux.Monitor(ctx)

	// the timeout is applied before the first read
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		port.mu.Lock()
		timeout := port.ReadTimeout
		port.mu.Unlock()
		if timeout == 250*time.Millisecond {
			cancel()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	t.Error("Monitor never configured the port read timeout")
}

func TestMonitorReturnsReadError(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	readErr := errors.New("framing error")
	mux := NewSerialMux(port)

	port.mu.Lock()
	port.ReadError = readErr
	port.mu.Unlock()

	err := mux.Monitor(context.Background())
	if !errors.Is(err, readErr) {
		t.Errorf("Monitor returned %v, want %v", err, readErr)
	}
}

func TestMonitorStopsOnEOF(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- mux.Monitor(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	port.Close()

	select {
	case err := <-monitorDone:
		if err != nil {
			t.Errorf("Monitor returned %v, want nil on EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop after the port closed")
	}
}

func TestSlowSubscriberDoesNotStallMonitor(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	mux.Subscribe() // never drained
	_, fast := mux.Subscribe()

	// Adjacent writes may coalesce into one read, so count bytes rather
	// than chunks.
	const total = 20
	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for received < total {
			select {
			case chunk := <-fast:
				received += len(chunk)
			case <-time.After(2 * time.Second):
				return
			}
		}
	}()

	for i := 0; i < total; i++ {
		port.AddReadData([]byte{byte(i)})
		time.Sleep(time.Millisecond)
	}

	<-done
	// the undrained subscriber must not prevent delivery to the fast one
	if received != total {
		t.Errorf("fast subscriber got %d bytes, want %d", received, total)
	}
}

func TestCloseClosesSubscribers(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewSerialMux(port)

	_, ch := mux.Subscribe()
	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, open := <-ch; open {
		t.Error("subscriber channel should be closed")
	}
	if !port.Closed {
		t.Error("underlying port should be closed")
	}
}

func TestMockSerialMuxReplaysStream(t *testing.T) {
	stream := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	mux := NewMockSerialMux(stream, 3, 5*time.Millisecond)
	defer mux.Close()

	_, ch := mux.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mux.Monitor(ctx)

	var got []byte
	deadline := time.After(2 * time.Second)
	// the stream replays in a loop; one full cycle is enough
	for len(got) < len(stream) {
		select {
		case chunk := <-ch:
			got = append(got, chunk...)
		case <-deadline:
			t.Fatalf("timed out, collected %d bytes: %x", len(got), got)
		}
	}

	if !bytes.Equal(got[:len(stream)], stream) {
		t.Errorf("replay = %x, want %x", got[:len(stream)], stream)
	}
}
