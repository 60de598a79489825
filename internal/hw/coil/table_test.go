package coil

import (
	"errors"
	"testing"

	"github.com/cjeanneret/plotter/internal/hw/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingWriter records pin writes for verification.
type recordingWriter struct {
	writes []pinWrite
	failAt int // 1-based write number that fails; 0 = never
}

type pinWrite struct {
	pin   int
	level gpio.Level
}

var errBoom = errors.New("boom")

func (w *recordingWriter) WritePin(pin int, level gpio.Level) error {
	if w.failAt > 0 && len(w.writes)+1 == w.failAt {
		return errBoom
	}
	w.writes = append(w.writes, pinWrite{pin: pin, level: level})
	return nil
}

// applied splits the recorded writes into one pattern per apply of width n.
func (w *recordingWriter) applied(n int) []string {
	var out []string
	for i := 0; i+n <= len(w.writes); i += n {
		p := make(Pattern, n)
		for j := 0; j < n; j++ {
			p[j] = w.writes[i+j].level
		}
		out = append(out, p.String())
	}
	return out
}

var testPins = []int{17, 18, 27, 22}

func scenarioTable(t *testing.T, w *recordingWriter) *Table {
	t.Helper()
	tbl, err := New(w, Config{
		Pins:     testPins,
		Patterns: bits("0000", "1100", "0110", "0011", "1001"),
	})
	require.NoError(t, err)
	return tbl
}

func TestNew_Validation(t *testing.T) {
	w := &recordingWriter{}
	cases := []struct {
		name string
		w    gpio.PinWriter
		cfg  Config
		want error
	}{
		{"nil_writer", nil, Config{Pins: testPins, Patterns: Wave}, ErrNoWriter},
		{"no_patterns", w, Config{Pins: testPins}, ErrNoPatterns},
		{"no_pins", w, Config{Patterns: Wave}, ErrNoPins},
		{"narrow_pattern", w, Config{Pins: testPins, Patterns: bits("1000", "010")}, ErrWidthMismatch},
		{"too_few_pins", w, Config{Pins: []int{1, 2, 3}, Patterns: Wave}, ErrWidthMismatch},
		{"start_negative", w, Config{Pins: testPins, Patterns: Wave, StartState: -1}, ErrInvalidState},
		{"start_past_end", w, Config{Pins: testPins, Patterns: Wave, StartState: 4}, ErrInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.w, tc.cfg)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Empty(t, w.writes, "construction must not write pins")
}

func TestNew_StartState(t *testing.T) {
	w := &recordingWriter{}
	tbl, err := New(w, Config{Pins: testPins, Patterns: HalfStep, StartState: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.State())
	assert.Equal(t, 8, tbl.Len())
	assert.Equal(t, 4, tbl.Width())
	assert.Empty(t, w.writes)
}

func TestTable_ForwardVisitsAndWraps(t *testing.T) {
	w := &recordingWriter{}
	tbl := scenarioTable(t, w)

	var states []int
	for i := 0; i < 5; i++ {
		require.NoError(t, tbl.Forward())
		states = append(states, tbl.State())
	}
	assert.Equal(t, []int{1, 2, 3, 4, 0}, states)
	assert.Equal(t, []string{"1100", "0110", "0011", "1001", "0000"}, w.applied(4))
}

func TestTable_BackwardWraps(t *testing.T) {
	w := &recordingWriter{}
	tbl := scenarioTable(t, w)

	var states []int
	for i := 0; i < 6; i++ {
		require.NoError(t, tbl.Backward())
		states = append(states, tbl.State())
	}
	assert.Equal(t, []int{4, 3, 2, 1, 0, 4}, states)
}

func TestTable_ForwardNTimesReturnsToStart(t *testing.T) {
	for name, seq := range presets {
		t.Run(name, func(t *testing.T) {
			for start := range seq {
				w := &recordingWriter{}
				tbl, err := New(w, Config{Pins: testPins, Patterns: seq, StartState: start})
				require.NoError(t, err)

				for i := 0; i < len(seq); i++ {
					require.NoError(t, tbl.Forward())
				}
				assert.Equal(t, start, tbl.State())
				assert.Len(t, w.writes, len(seq)*len(testPins), "each apply writes one level per pin")
			}
		})
	}
}

func TestTable_WritesEveryPinInOrder(t *testing.T) {
	w := &recordingWriter{}
	tbl := scenarioTable(t, w)

	require.NoError(t, tbl.Forward())
	require.Len(t, w.writes, 4)
	for i, pw := range w.writes {
		assert.Equal(t, testPins[i], pw.pin)
	}
}

func TestTable_EnableIsIdempotent(t *testing.T) {
	w := &recordingWriter{}
	tbl, err := New(w, Config{Pins: testPins, Patterns: FullStep, StartState: 2})
	require.NoError(t, err)

	require.NoError(t, tbl.Enable())
	require.NoError(t, tbl.Enable())
	assert.Equal(t, []string{"0011", "0011"}, w.applied(4))
	assert.Equal(t, 2, tbl.State())
}

func TestTable_DisableWritesAllLow(t *testing.T) {
	w := &recordingWriter{}
	tbl, err := New(w, Config{Pins: testPins, Patterns: bits("1111", "1110")})
	require.NoError(t, err)

	require.NoError(t, tbl.Enable())
	w.writes = nil

	require.NoError(t, tbl.Disable())
	require.Len(t, w.writes, 4)
	for _, pw := range w.writes {
		assert.Equal(t, gpio.Low, pw.level, "pin %d", pw.pin)
	}
	assert.Equal(t, 0, tbl.State(), "disable keeps the state index")

	w.writes = nil
	require.NoError(t, tbl.Enable())
	assert.Equal(t, []string{"1111"}, w.applied(4), "enable resumes the held pattern")
}

func TestTable_SetState(t *testing.T) {
	w := &recordingWriter{}
	tbl := scenarioTable(t, w)

	require.NoError(t, tbl.SetState(3))
	assert.Equal(t, 3, tbl.State())
	assert.Equal(t, []string{"0011"}, w.applied(4))
}

func TestTable_SetStateInvalid(t *testing.T) {
	w := &recordingWriter{}
	tbl := scenarioTable(t, w)
	require.NoError(t, tbl.Forward())
	w.writes = nil

	for _, i := range []int{-1, 5, 42} {
		err := tbl.SetState(i)
		assert.ErrorIs(t, err, ErrInvalidState, "index %d", i)
	}
	assert.Equal(t, 1, tbl.State())
	assert.Empty(t, w.writes, "rejected SetState must not write")
}

func TestTable_WriteErrorSurfaces(t *testing.T) {
	w := &recordingWriter{failAt: 3}
	tbl := scenarioTable(t, w)

	err := tbl.Forward()
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "pin 27")
	assert.Len(t, w.writes, 2, "writes after the failing pin are skipped")
}

func TestTable_FailedTransitionKeepsState(t *testing.T) {
	cases := []struct {
		name string
		move func(*Table) error
	}{
		{"forward", (*Table).Forward},
		{"backward", (*Table).Backward},
		{"set_state", func(tbl *Table) error { return tbl.SetState(3) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &recordingWriter{failAt: 1}
			tbl := scenarioTable(t, w)

			require.ErrorIs(t, tc.move(tbl), errBoom)
			assert.Equal(t, 0, tbl.State(), "failed write must not move the index")

			// The retried transition lands on the neighbour of the original state.
			w.failAt = 0
			require.NoError(t, tbl.Forward())
			assert.Equal(t, 1, tbl.State())
			assert.Equal(t, []string{"1100"}, w.applied(4))
		})
	}
}

func TestTable_CopiesConfig(t *testing.T) {
	w := &recordingWriter{}
	pins := []int{1, 2}
	pats := bits("10", "01")
	tbl, err := New(w, Config{Pins: pins, Patterns: pats})
	require.NoError(t, err)

	pins[0] = 99
	pats[0][0] = gpio.Low
	assert.Equal(t, []int{1, 2}, tbl.Pins())
	assert.Equal(t, "10", tbl.Pattern(0).String())
}
