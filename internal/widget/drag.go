package widget

// Offset is the panel's displacement from its docked position, in pixels.
type Offset struct {
	X, Y float64
}

type dragState struct {
	dragging bool
	initial  Offset
	offset   Offset
}

// PointerDown starts a drag when the pointer lands on the header.
func (c *Controller) PointerDown(x, y float64, onHeader bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag.initial = Offset{X: x - c.drag.offset.X, Y: y - c.drag.offset.Y}
	c.drag.dragging = onHeader
}

// PointerMove moves the panel while dragging.
func (c *Controller) PointerMove(x, y float64) {
	c.mu.Lock()
	if !c.drag.dragging {
		c.mu.Unlock()
		return
	}
	c.drag.offset = Offset{X: x - c.drag.initial.X, Y: y - c.drag.initial.Y}
	o := c.drag.offset
	c.mu.Unlock()

	c.view.MoveTo(o)
}

// PointerUp ends a drag.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drag.initial = c.drag.offset
	c.drag.dragging = false
}

// Offset is the current panel displacement.
func (c *Controller) Offset() Offset {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag.offset
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag.dragging
}
