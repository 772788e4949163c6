package geometry

// PointCollector accumulates picked points until a full quadrilateral is
// available. It replaces module-level click counters in interactive tools:
// each UI owns its own collector.
//
// The zero value is ready to use. PointCollector is not safe for concurrent use.
type PointCollector struct {
	points [4]Point2D
	n      int
}

// Add records p. When p is the fourth point, Add returns the completed
// quadrilateral and true, and the collector starts over empty. Otherwise it
// returns false.
func (c *PointCollector) Add(p Point2D) (Quadrilateral, bool) {
	c.points[c.n] = p
	c.n++
	if c.n < len(c.points) {
		return Quadrilateral{}, false
	}
	q := Quadrilateral(c.points)
	c.Reset()
	return q, true
}

// Len returns how many points are pending.
func (c *PointCollector) Len() int {
	return c.n
}

// Pending returns a copy of the points collected so far.
func (c *PointCollector) Pending() []Point2D {
	out := make([]Point2D, c.n)
	copy(out, c.points[:c.n])
	return out
}

// Reset discards any pending points.
func (c *PointCollector) Reset() {
	c.points = [4]Point2D{}
	c.n = 0
}
