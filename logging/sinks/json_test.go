package sinks

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hexworld/server/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestJSONSinkCloseFlushesAndStops(t *testing.T) {
	var out syncBuffer
	sink := NewJSON(&out, time.Hour)

	if err := sink.Write(logging.Event{Type: "lifecycle.room_created", Room: "ABC123"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	// The flush interval has not elapsed, so the event sits in the buffer
	// until Close flushes it.
	if strings.Contains(out.String(), "room_created") {
		t.Fatal("event flushed before Close despite a long interval")
	}

	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(out.String(), "room_created") {
		t.Fatalf("event missing after Close: %q", out.String())
	}

	// Close is idempotent; a second call must not panic on the stop channel.
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestJSONSinkAutoFlushWithoutInterval(t *testing.T) {
	var out syncBuffer
	sink := NewJSON(&out, 0)

	if err := sink.Write(logging.Event{Type: "sync.cell_updated", Room: "ABC123"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(out.String(), "cell_updated") {
		t.Fatalf("event not flushed immediately: %q", out.String())
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}
