package logging_test

import (
	"context"
	"testing"
	"time"

	"hexworld/server/logging"
	"hexworld/server/logging/sinks"
)

func newRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.Memory) {
	t.Helper()
	memory := sinks.NewMemory()
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		router.Close(ctx)
	})
	return router, memory
}

func waitForEvents(t *testing.T, memory *sinks.Memory, want int) []logging.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		events := memory.Events()
		if len(events) >= want {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("sink received %d events, want %d", len(events), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRouterDeliversToSink(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityDebug
	router, memory := newRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{
		Type:     "sync.cell_updated",
		Room:     "ABC123",
		Severity: logging.SeverityDebug,
		Category: logging.CategorySync,
	})

	events := waitForEvents(t, memory, 1)
	event := events[0]
	if event.Type != "sync.cell_updated" || event.Room != "ABC123" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Time.IsZero() {
		t.Fatal("router did not stamp the event time")
	}

	stats := router.Stats()
	if stats.EventsTotal == 0 {
		t.Fatalf("stats did not count the event: %+v", stats)
	}
}

func TestRouterFiltersBySeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, memory := newRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "quiet", Severity: logging.SeverityInfo})
	router.Publish(context.Background(), logging.Event{Type: "loud", Severity: logging.SeverityError})

	events := waitForEvents(t, memory, 1)
	for _, event := range events {
		if event.Type == "quiet" {
			t.Fatal("info event passed a warn filter")
		}
	}
	if events[0].Type != "loud" {
		t.Fatalf("expected the error event, got %+v", events[0])
	}
}

func TestRouterAttachesConfiguredFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityDebug
	cfg.Fields = map[string]any{"node": "test-1"}
	router, memory := newRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{
		Type:     "lifecycle.connection_opened",
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"node": "explicit"},
	})
	router.Publish(context.Background(), logging.Event{
		Type:     "lifecycle.connection_closed",
		Severity: logging.SeverityInfo,
	})

	events := waitForEvents(t, memory, 2)
	for _, event := range events {
		switch event.Type {
		case "lifecycle.connection_opened":
			if event.Extra["node"] != "explicit" {
				t.Fatalf("configured field overwrote explicit value: %+v", event.Extra)
			}
		case "lifecycle.connection_closed":
			if event.Extra["node"] != "test-1" {
				t.Fatalf("configured field missing: %+v", event.Extra)
			}
		}
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	cfg := logging.DefaultConfig()
	memory := sinks.NewMemory()
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	time.Sleep(10 * time.Millisecond)
	for _, event := range memory.Events() {
		if event.Type == "late" {
			t.Fatal("event accepted after close")
		}
	}
}

func TestSinkLookup(t *testing.T) {
	cfg := logging.DefaultConfig()
	router, memory := newRouter(t, cfg)

	if got := router.Sink("memory"); got != logging.Sink(memory) {
		t.Fatalf("Sink(memory) = %v", got)
	}
	if got := router.Sink("missing"); got != nil {
		t.Fatalf("Sink(missing) = %v, want nil", got)
	}
}

func TestWithFields(t *testing.T) {
	var captured logging.Event
	pub := logging.WithFields(logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = event
	}), map[string]any{"build": "dev"})

	pub.Publish(context.Background(), logging.Event{Type: "system.start"})
	if captured.Extra["build"] != "dev" {
		t.Fatalf("field not attached: %+v", captured.Extra)
	}
}
