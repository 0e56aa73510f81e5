package focus

// Overflow classifies a scroll offset against the last event's position.
type Overflow struct {
	BeyondEnd bool    `json:"beyondEnd"`
	Amount    float64 `json:"amount"`
}

func classifyOverflow(offset, lastPos float64, hasLast bool) Overflow {
	if !hasLast || offset < lastPos {
		return Overflow{}
	}
	return Overflow{BeyondEnd: true, Amount: offset - lastPos}
}

type overflowDetector struct {
	last Overflow
}

// update stores o and reports whether BeyondEnd flipped.
func (d *overflowDetector) update(o Overflow) bool {
	flipped := o.BeyondEnd != d.last.BeyondEnd
	d.last = o
	return flipped
}
