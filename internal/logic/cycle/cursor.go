package cycle

// Cursor walks a fixed ordered sequence of elements with wrap-around at both
// ends. The elements are copied at construction, so the caller may reuse or
// mutate its slice without affecting the cursor.
type Cursor[T any] struct {
	elems []T
	pos   Counter
}

// New creates a cursor positioned at the first element of elems.
func New[T any](elems []T) (*Cursor[T], error) {
	return NewAt(elems, 0)
}

// NewAt creates a cursor positioned at elems[start].
func NewAt[T any](elems []T, start int) (*Cursor[T], error) {
	pos, err := NewCounter(len(elems), start)
	if err != nil {
		return nil, err
	}
	return &Cursor[T]{
		elems: append([]T(nil), elems...),
		pos:   pos,
	}, nil
}

// Current returns the element at the cursor position.
func (c *Cursor[T]) Current() T {
	return c.elems[c.pos.Index()]
}

// Index returns the cursor position.
func (c *Cursor[T]) Index() int {
	return c.pos.Index()
}

// Len returns the number of elements in the sequence.
func (c *Cursor[T]) Len() int {
	return c.pos.Len()
}

// Advance moves to the next element, wrapping to the first after the last.
func (c *Cursor[T]) Advance() {
	c.pos.Advance()
}

// Retreat moves to the previous element, wrapping to the last before the first.
func (c *Cursor[T]) Retreat() {
	c.pos.Retreat()
}

// AdvanceBy performs n single forward steps. A negative n retreats.
func (c *Cursor[T]) AdvanceBy(n int) *Cursor[T] {
	c.pos.AdvanceBy(n)
	return c
}

// RetreatBy performs n single backward steps. A negative n advances.
func (c *Cursor[T]) RetreatBy(n int) *Cursor[T] {
	c.pos.RetreatBy(n)
	return c
}

// Next advances one step and returns the cursor.
func (c *Cursor[T]) Next() *Cursor[T] {
	c.Advance()
	return c
}

// Prev retreats one step and returns the cursor.
func (c *Cursor[T]) Prev() *Cursor[T] {
	c.Retreat()
	return c
}

// PostNext advances one step and returns a copy of the cursor as it was
// before the step. The copy shares the element storage.
func (c *Cursor[T]) PostNext() Cursor[T] {
	snap := *c
	c.Advance()
	return snap
}

// PostPrev retreats one step and returns a copy of the cursor as it was
// before the step.
func (c *Cursor[T]) PostPrev() Cursor[T] {
	snap := *c
	c.Retreat()
	return snap
}
