package pdf

import "math"

// The extraction model reports positions in a normalized space of
// [0,1000] x [0,1000] with the origin at the top-left of the page. PDF
// page space has its origin at the bottom-left. The conversions here
// are pure and deliberately do no clamping; out-of-range input is the
// caller's problem (drag handling clamps at mutation time).

// NormalizedMax is the upper bound of the normalized coordinate space.
const NormalizedMax = 1000.0

// ToPagePoint converts normalized top-left-origin coordinates to
// physical bottom-left-origin page coordinates for a page of the given
// size in points.
func ToPagePoint(x, y int, width, height float64) (px, py float64) {
	px = float64(x) / NormalizedMax * width
	py = height - float64(y)/NormalizedMax*height
	return px, py
}

// ToNormalized is the inverse of ToPagePoint. Results are rounded to
// the nearest normalized unit.
func ToNormalized(px, py, width, height float64) (x, y int) {
	x = int(math.Round(px / width * NormalizedMax))
	y = int(math.Round((height - py) / height * NormalizedMax))
	return x, y
}
