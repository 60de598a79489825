package coil

import (
	"fmt"
	"strings"

	"github.com/cjeanneret/plotter/internal/hw/gpio"
)

// Pattern is one energization state of a set of coils: one level per coil,
// in the same order as the table's pins.
type Pattern []gpio.Level

// String renders the pattern as a bit string, e.g. "1100".
func (p Pattern) String() string {
	var b strings.Builder
	for _, l := range p {
		b.WriteString(l.String())
	}
	return b.String()
}

// ParsePattern parses a bit string such as "1001" into a Pattern.
// Only '0' and '1' are accepted; '_' may be used as a visual separator.
func ParsePattern(s string) (Pattern, error) {
	var p Pattern
	for i, r := range s {
		switch r {
		case '0':
			p = append(p, gpio.Low)
		case '1':
			p = append(p, gpio.High)
		case '_':
		default:
			return nil, fmt.Errorf("pattern %q: invalid character %q at %d", s, r, i)
		}
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("pattern %q: no coils", s)
	}
	return p, nil
}

// ParsePatterns parses every string with ParsePattern.
func ParsePatterns(ss []string) ([]Pattern, error) {
	out := make([]Pattern, 0, len(ss))
	for _, s := range ss {
		p, err := ParsePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func bits(rows ...string) []Pattern {
	ps, err := ParsePatterns(rows)
	if err != nil {
		panic(err)
	}
	return ps
}

// Built-in sequences for 4-wire motors.
var (
	// Wave energizes one coil at a time.
	Wave = bits("1000", "0100", "0010", "0001")
	// FullStep energizes two adjacent coils at a time for higher torque.
	FullStep = bits("1100", "0110", "0011", "1001")
	// HalfStep interleaves Wave and FullStep for twice the resolution.
	HalfStep = bits("1000", "1100", "0100", "0110", "0010", "0011", "0001", "1001")
)

var presets = map[string][]Pattern{
	"wave":      Wave,
	"full_step": FullStep,
	"half_step": HalfStep,
}

// Preset returns a copy of the named built-in sequence.
// Known names: wave, full_step, half_step.
func Preset(name string) ([]Pattern, error) {
	ps, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown coil sequence %q", name)
	}
	out := make([]Pattern, len(ps))
	for i, p := range ps {
		out[i] = append(Pattern(nil), p...)
	}
	return out, nil
}
