// Package units converts travel distances to motor steps.
//
// Distances use periph's physic.Distance (nanometre fixed point), so any SI
// length ("2mm", "0.5mm", "1.2km") can be expressed and parsed. Step counts
// derive from a steps-per-millimetre resolution and are truncated toward zero,
// the same way a float-to-int conversion does.
package units

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Millimetres returns d expressed in millimetres.
func Millimetres(d physic.Distance) float64 {
	return float64(d) / float64(physic.MilliMetre)
}

// FromMillimetres returns the distance of mm millimetres.
func FromMillimetres(mm float64) physic.Distance {
	return physic.Distance(math.Round(mm * float64(physic.MilliMetre)))
}

// Steps converts d to a step count at stepsPerMM, truncating toward zero.
// The product is formed before scaling down so that distances landing on a
// whole step stay exact.
func Steps(d physic.Distance, stepsPerMM float64) int {
	return int(float64(d) * stepsPerMM / float64(physic.MilliMetre))
}

// Distance converts a step count back to a distance at stepsPerMM.
func Distance(steps int, stepsPerMM float64) physic.Distance {
	if stepsPerMM == 0 {
		return 0
	}
	return FromMillimetres(float64(steps) / stepsPerMM)
}

// ParseDistance parses a length with unit, e.g. "2mm" or "0.5mm".
func ParseDistance(s string) (physic.Distance, error) {
	var d physic.Distance
	if err := d.Set(s); err != nil {
		return 0, fmt.Errorf("parse distance %q: %w", s, err)
	}
	return d, nil
}
