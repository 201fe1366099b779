package emath

import "math"

// Exact Euclidean distance transform, from "Distance Transforms of
// Sampled Functions", Felzenszwalb & Huttenlocher (2012).

const edtInf = 1e20

// NoBackgroundDistance is what every pixel gets when nothing is outside
const NoBackgroundDistance = 1e10

// DistanceTransform returns, for each pixel of a w*h grid where inside()
// is true, the Euclidean distance to the nearest pixel where it is
// false. Only pixels in the grid count; the edge of the grid is not
// background. Outside pixels get 0, and if there are no outside pixels
// at all every pixel gets NoBackgroundDistance.
func DistanceTransform(w, h int, inside func(x, y int) bool) FloatGrid {
	g := NewFloatGrid(w, h)
	f := make([]float64, w*h)
	anyOutside := false
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			if inside(x, y) {
				f[y*w + x] = edtInf
			} else {
				anyOutside = true
			}
		}
	}
	if !anyOutside {
		for i := range g.values {
			g.values[i] = NoBackgroundDistance
		}
		return g
	}

	n := w
	if h > n { n = h }
	col, out := make([]float64, n), make([]float64, n)
	v, z := make([]int, n), make([]float64, n+1)

	// Columns first, then rows, on squared distances
	for x:=0; x<w; x++ {
		for y:=0; y<h; y++ { col[y] = f[y*w + x] }
		edt1d(col[:h], out[:h], v, z)
		for y:=0; y<h; y++ { f[y*w + x] = out[y] }
	}
	for y:=0; y<h; y++ {
		row := f[y*w : (y+1)*w]
		copy(col, row)
		edt1d(col[:w], out[:w], v, z)
		copy(row, out[:w])
	}

	for i := range f {
		g.values[i] = math.Sqrt(f[i])
	}
	return g
}

// edt1d is the 1D squared distance transform of f (lower envelope of
// parabolas). v and z are scratch space, of len(f) and len(f)+1.
func edt1d(f, d []float64, v []int, z []float64) {
	n := len(f)
	if n == 0 {
		return
	}

	intersect := func(q, p int) float64 {
		return ((f[q] + float64(q*q)) - (f[p] + float64(p*p))) / float64(2*q - 2*p)
	}

	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)
	for q:=1; q<n; q++ {
		s := intersect(q, v[k])
		for s <= z[k] {
			k--
			s = intersect(q, v[k])
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q:=0; q<n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dq := float64(q - v[k])
		d[q] = dq*dq + f[v[k]]
	}
}
