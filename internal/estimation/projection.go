package estimation

// The multiplier estimation problem is under-determined: one linear
// constraint over two or three unknown correction factors. The solvers below
// pick the point on the constraint line/plane closest to the nominal
// no-correction point (all multipliers = 1), which is the minimum-deviation
// least-squares solution.

// ProjectToLine returns the point on the line a*x + b*y = c closest to the
// reference point (1, 1). A zero normal vector yields (1, 1), i.e. no
// correction.
func ProjectToLine(a, b, c float64) (x, y float64) {
	dot := a*a + b*b
	if dot == 0 {
		return 1, 1
	}
	x = (b*b - a*b + a*c) / dot
	y = (a*a - a*b + b*c) / dot
	return x, y
}

// ProjectToPlane returns the point on the plane a*x + b*y + c*z = d closest
// to the reference point (1, 1, 1). A zero normal vector yields (1, 1, 1).
func ProjectToPlane(a, b, c, d float64) (x, y, z float64) {
	dot := a*a + b*b + c*c
	if dot == 0 {
		return 1, 1, 1
	}
	t := (d - a - b - c) / dot
	return 1 + a*t, 1 + b*t, 1 + c*t
}
