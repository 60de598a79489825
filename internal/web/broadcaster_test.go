package web

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cjeanneret/plotter/internal/logic/motion"
)

// nextEvent decodes the next message on ch or fails after a second.
func nextEvent(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		var evt StatusEvent
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("decode %q: %v", msg, err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("no event within 1s")
	}
	return StatusEvent{}
}

// expectSilence fails if anything arrives on ch within a short window.
func expectSilence(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Errorf("unexpected event %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_LogEvent(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Broadcast("error", "move x failed")

	evt := nextEvent(t, ch)
	if evt.Level != "error" || evt.Msg != "move x failed" {
		t.Errorf("event = %+v", evt)
	}
	if _, err := time.Parse(time.RFC3339, evt.Time); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", evt.Time, err)
	}
	if evt.Axes != nil {
		t.Errorf("log event should carry no axes, got %+v", evt.Axes)
	}
}

func TestBroadcaster_BroadcastMsgIsInfo(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.BroadcastMsg("homing x")

	if evt := nextEvent(t, ch); evt.Level != "info" || evt.Msg != "homing x" {
		t.Errorf("event = %+v, want info \"homing x\"", evt)
	}
}

func TestBroadcaster_AxesEvent(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.BroadcastAxes([]motion.AxisStatus{
		{Name: "x", Current: 240, Target: 240, PositionMM: 2},
		{Name: "z", Current: -3, Target: 0, Homing: true},
	})

	evt := nextEvent(t, ch)
	if evt.Level != "status" || evt.Msg != "" {
		t.Errorf("level/msg = %q/%q, want status with no message", evt.Level, evt.Msg)
	}
	if len(evt.Axes) != 2 {
		t.Fatalf("axes = %+v, want 2 entries", evt.Axes)
	}
	if x := evt.Axes[0]; x.Name != "x" || x.Current != 240 || x.PositionMM != 2 {
		t.Errorf("x = %+v", x)
	}
	if z := evt.Axes[1]; !z.Homing || z.Current != -3 {
		t.Errorf("z = %+v", z)
	}
}

func TestBroadcaster_FanOut(t *testing.T) {
	b := NewStatusBroadcaster()
	const clients = 3
	chans := make([]<-chan string, clients)
	for i := range chans {
		ch, unsub := b.Subscribe()
		defer unsub()
		chans[i] = ch
	}

	b.Broadcast("info", "stopped")

	for i, ch := range chans {
		if evt := nextEvent(t, ch); evt.Msg != "stopped" {
			t.Errorf("client %d got %+v", i, evt)
		}
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()
	unsub() // second call is a no-op

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	// Nobody listening any more: must not panic.
	b.Broadcast("info", "after unsub")
}

func TestBroadcaster_SlowClientDropsOverflow(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Broadcast("info", "tick")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full client")
	}

	if got := len(ch); got != cap(ch) {
		t.Errorf("buffered = %d, want the buffer full at %d", got, cap(ch))
	}
}

func TestBroadcastWriter(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "[plotter] [LIVE] Motor x: 0 -> 240\n", []string{"[plotter] [LIVE] Motor x: 0 -> 240"}},
		{"trimmed", "  padded  \n", []string{"padded"}},
		{"multi", "first\nsecond\n", []string{"first", "second"}},
		{"blank", "   \n\n", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewStatusBroadcaster()
			ch, unsub := b.Subscribe()
			defer unsub()

			n, err := BroadcastWriter(b).Write([]byte(tc.input))
			if err != nil || n != len(tc.input) {
				t.Fatalf("Write = %d, %v; want %d, nil", n, err, len(tc.input))
			}
			for _, want := range tc.want {
				if evt := nextEvent(t, ch); evt.Msg != want || evt.Level != "info" {
					t.Errorf("event = %+v, want info %q", evt, want)
				}
			}
			expectSilence(t, ch)
		})
	}
}
