package debug

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(lvl)
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		Init(LevelOff)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelLive)

	Info("setup %d", 1)
	Move("x", 0, 240)
	Verbose("hidden")
	Trace("hidden too")

	out := buf.String()
	if !strings.Contains(out, "[INFO] setup 1") {
		t.Errorf("missing info line:\n%s", out)
	}
	if !strings.Contains(out, "[LIVE] Motor x: 0 -> 240") {
		t.Errorf("missing live line:\n%s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("verbose/trace lines printed at level %d:\n%s", LevelLive, out)
	}
	if !strings.Contains(out, "[plotter] ") {
		t.Errorf("missing prefix:\n%s", out)
	}
}

func TestOffPrintsNothing(t *testing.T) {
	buf := capture(t, LevelOff)

	Info("a")
	Error(errors.New("b"))
	Section("c")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got:\n%s", buf.String())
	}
}

func TestTraceHelpers(t *testing.T) {
	buf := capture(t, LevelTrace)

	GPIO("write", 17, "1")
	Coil(3, stringer("1001"))
	Tick("forward", 4, 10)

	out := buf.String()
	for _, want := range []string{
		"[GPIO] write pin=17 value=1",
		"[COIL] state=3 pattern=1001",
		"[VERBOSE] tick forward current=4 target=10",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSetOutputKeepsLevel(t *testing.T) {
	buf := capture(t, LevelInfo)
	if Level() != LevelInfo || !IsEnabled(LevelInfo) || IsEnabled(LevelLive) {
		t.Errorf("level = %d after SetOutput, want %d", Level(), LevelInfo)
	}
	Value("mock", true)
	if !strings.Contains(buf.String(), "mock = true") {
		t.Errorf("value line missing:\n%s", buf.String())
	}
}

type stringer string

func (s stringer) String() string { return string(s) }
