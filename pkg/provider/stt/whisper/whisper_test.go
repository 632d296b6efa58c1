package whisper

import (
	"errors"
	"testing"

	"github.com/MrWong99/voicegate/pkg/provider/stt"
)

func TestNew_EmptyModelPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") expected error, got nil")
	}
}

func TestDecoder_AcceptBelowThresholdBuffersSilently(t *testing.T) {
	d := &decoder{
		channels:         1,
		partialStepBytes: 1 << 20,
		minDecodeBytes:   1 << 20,
	}
	partial, updated, err := d.Accept(make([]byte, 320))
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if updated || partial != "" {
		t.Errorf("Accept() = (%q, %v), want no update below decode threshold", partial, updated)
	}
	if len(d.buf) != 320 {
		t.Errorf("buffered %d bytes, want 320", len(d.buf))
	}
}

func TestDecoder_ClosedErrors(t *testing.T) {
	d := &decoder{channels: 1}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, _, err := d.Accept(nil); !errors.Is(err, stt.ErrDecoderClosed) {
		t.Errorf("Accept() after Close error = %v, want ErrDecoderClosed", err)
	}
	if _, err := d.Flush(); !errors.Is(err, stt.ErrDecoderClosed) {
		t.Errorf("Flush() after Close error = %v, want ErrDecoderClosed", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDecoder_FlushEmptyBuffer(t *testing.T) {
	d := &decoder{channels: 1, minDecodeBytes: 64}
	text, err := d.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if text != "" {
		t.Errorf("Flush() = %q, want empty transcript for empty buffer", text)
	}
	if _, err := d.Flush(); err == nil {
		t.Error("second Flush() expected error")
	}
}
