package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Logf("checksum mismatch on %s", "ttyUSB0")

	if got != "checksum mismatch on %s" {
		t.Errorf("custom logger not called, got %q", got)
	}

	// nil installs a no-op rather than leaving Logf nil
	SetLogger(nil)
	if Logf == nil {
		t.Fatal("Logf should never be nil")
	}
	Logf("should not panic")
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}
