package grid

// uniformBlockSizes are the block sizes a Piet authoring tool commonly
// uses for codels, checked in increasing order once GCD-based detection
// has produced a candidate that needs confirming against the image
// dimensions (spec.md §4.2 step 1).
var uniformBlockSizes = [...]int{1, 2, 4, 5, 8, 10, 16, 20, 25, 32}

// detectCodelSize infers the codel size of a raw RGBA image by measuring
// the shortest run of same-color pixels in every row and every column and
// taking the GCD of those run lengths. The result is the largest entry of
// uniformBlockSizes that divides that GCD and both image dimensions (so a
// GCD not on the list, e.g. 3, yields 1). An image with no pixels falls
// back to codel size 1.
func detectCodelSize(rgba []byte, w, h int) int {
	g := 0
	for y := 0; y < h; y++ {
		g = gcd(g, shortestRunInRow(rgba, w, y))
	}
	for x := 0; x < w; x++ {
		g = gcd(g, shortestRunInCol(rgba, w, h, x))
	}
	if g == 0 {
		return 1
	}
	size := 1
	for _, s := range uniformBlockSizes {
		if g%s == 0 && w%s == 0 && h%s == 0 {
			size = s
		}
	}
	return size
}

func shortestRunInRow(rgba []byte, w, y int) int {
	min := 0
	runStart := 0
	for x := 1; x <= w; x++ {
		if x == w || !samePixel(rgba, w, x, y, runStart, y) {
			run := x - runStart
			if min == 0 || run < min {
				min = run
			}
			runStart = x
		}
	}
	return min
}

func shortestRunInCol(rgba []byte, w, h, x int) int {
	min := 0
	runStart := 0
	for y := 1; y <= h; y++ {
		if y == h || !samePixel(rgba, w, x, y, x, runStart) {
			run := y - runStart
			if min == 0 || run < min {
				min = run
			}
			runStart = y
		}
	}
	return min
}

func samePixel(rgba []byte, stride, x1, y1, x2, y2 int) bool {
	r1, g1, b1, _ := pixelAt(rgba, stride, x1, y1)
	r2, g2, b2, _ := pixelAt(rgba, stride, x2, y2)
	return r1 == r2 && g1 == g2 && b1 == b2
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
