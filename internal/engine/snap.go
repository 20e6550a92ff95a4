package engine

import "math"

// SnapThreshold is the distance in canvas pixels at which a dragged box
// snaps to a canvas edge or to the canvas center.
const SnapThreshold = 10

// Guides are the center guide lines shown while a drag is snapped to the
// canvas center. Vertical is the line x = width/2, Horizontal is y = height/2.
type Guides struct {
	Vertical   bool `json:"vertical"`
	Horizontal bool `json:"horizontal"`
}

// snapToCanvas returns the correction to apply to moving so it aligns with
// the canvas. Each axis is solved independently: edges first, then the
// center, which wins when both are in range.
func snapToCanvas(moving Rect, canvasW, canvasH float64) (dx, dy float64, g Guides) {
	dx, g.Vertical = snapAxis(moving.X, moving.Width, canvasW)
	dy, g.Horizontal = snapAxis(moving.Y, moving.Height, canvasH)
	return dx, dy, g
}

func snapAxis(start, size, extent float64) (float64, bool) {
	delta := 0.0
	if d := -start; math.Abs(d) <= SnapThreshold {
		delta = d
	} else if d := extent - (start + size); math.Abs(d) <= SnapThreshold {
		delta = d
	}
	if d := extent/2 - (start + size/2); math.Abs(d) <= SnapThreshold {
		return d, true
	}
	return delta, false
}
