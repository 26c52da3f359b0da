package core

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

// fakeTransport records deliveries. broken makes every delivery fail.
type fakeTransport struct {
	mu      sync.Mutex
	events  []*Event
	signals []*Signal
	frames  [][]byte
	broken  bool
}

func (f *fakeTransport) Deliver(ev *Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeTransport) DeliverSignal(sig *Signal) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return false
	}
	f.signals = append(f.signals, sig)
	return true
}

func (f *fakeTransport) DeliverFrame(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return false
	}
	f.frames = append(f.frames, frame)
	return true
}

func (f *fakeTransport) eventCount(kind EventKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeTransport) lastEvent(kind EventKind) *Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].Kind == kind {
			return f.events[i]
		}
	}
	return nil
}

func (f *fakeTransport) signalTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.signals))
	for _, sig := range f.signals {
		out = append(out, sig.Type)
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never held: %s", msg)
}

// newTestWorld builds a registry/binder/directory trio for directory tests.
func newTestWorld() (*Registry, *Binder, *Directory) {
	logger := testLogger()
	registry := NewRegistry(logger)
	binder := NewBinder(logger)
	directory := NewDirectory(registry, binder, 35*time.Second, logger)
	directory.listenerDelay = time.Millisecond
	return registry, binder, directory
}
