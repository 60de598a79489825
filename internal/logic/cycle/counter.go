// Package cycle implements wrap-around traversal over fixed-length ordered
// sequences. Stepping past the last element lands on the first one and
// stepping back from the first element lands on the last one.
package cycle

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySequence is returned when a cycle is built over zero elements.
	ErrEmptySequence = errors.New("cycle: sequence must have at least one element")
	// ErrOutOfRange is returned when a start index is outside the sequence.
	ErrOutOfRange = errors.New("cycle: index out of range")
)

// Counter holds the index of an entry of a fixed-length circular sequence.
// The index is always in [0, Len()).
type Counter struct {
	index  int
	length int
}

// NewCounter creates a counter over length entries positioned at start.
func NewCounter(length, start int) (Counter, error) {
	if length < 1 {
		return Counter{}, ErrEmptySequence
	}
	if start < 0 || start >= length {
		return Counter{}, fmt.Errorf("%w: start %d, length %d", ErrOutOfRange, start, length)
	}
	return Counter{index: start, length: length}, nil
}

// Index returns the current position.
func (c *Counter) Index() int {
	return c.index
}

// Len returns the length of the sequence the counter walks.
func (c *Counter) Len() int {
	return c.length
}

// Valid reports whether i is a position inside the sequence.
func (c *Counter) Valid(i int) bool {
	return i >= 0 && i < c.length
}

// Set moves the counter to i. It returns ErrOutOfRange and leaves the
// position untouched when i is not a valid index.
func (c *Counter) Set(i int) error {
	if !c.Valid(i) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, i, c.length)
	}
	c.index = i
	return nil
}

// Advance moves one entry forward, wrapping from the last entry to the first.
func (c *Counter) Advance() {
	c.index++
	if c.index == c.length {
		c.index = 0
	}
}

// Retreat moves one entry backward, wrapping from the first entry to the last.
func (c *Counter) Retreat() {
	if c.index == 0 {
		c.index = c.length - 1
		return
	}
	c.index--
}

// AdvanceBy performs n single forward steps. A negative n retreats.
func (c *Counter) AdvanceBy(n int) {
	if n < 0 {
		c.RetreatBy(-n)
		return
	}
	for i := 0; i < n; i++ {
		c.Advance()
	}
}

// RetreatBy performs n single backward steps. A negative n advances.
func (c *Counter) RetreatBy(n int) {
	if n < 0 {
		c.AdvanceBy(-n)
		return
	}
	for i := 0; i < n; i++ {
		c.Retreat()
	}
}
