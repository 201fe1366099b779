package emath

// 3x3 matrices in homogeneous 2D coordinates, used for homographies.

import(
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"
)

// Below this, a homogeneous w is treated as zero (the point went to infinity)
const EpsilonW = 1e-12

// Use a local type so we can hang methods off it. Row major.
type Mat3 f64.Mat3
type Vec3 f64.Vec3

func Identity() Mat3 {
	return Mat3{1, 0, 0,   0, 1, 0,   0, 0, 1}
}

func Translation(tx, ty float64) Mat3 {
	return Mat3{1, 0, tx,   0, 1, ty,   0, 0, 1}
}

func Scaling(sx, sy float64) Mat3 {
	return Mat3{sx, 0, 0,   0, sy, 0,   0, 0, 1}
}

func (a Mat3)Mult(b Mat3) Mat3 {
	return Mat3{
		a[3*0+0]*b[3*0+0] + a[3*0+1]*b[3*1+0] + a[3*0+2]*b[3*2+0],
		a[3*0+0]*b[3*0+1] + a[3*0+1]*b[3*1+1] + a[3*0+2]*b[3*2+1],
		a[3*0+0]*b[3*0+2] + a[3*0+1]*b[3*1+2] + a[3*0+2]*b[3*2+2],

		a[3*1+0]*b[3*0+0] + a[3*1+1]*b[3*1+0] + a[3*1+2]*b[3*2+0],
		a[3*1+0]*b[3*0+1] + a[3*1+1]*b[3*1+1] + a[3*1+2]*b[3*2+1],
		a[3*1+0]*b[3*0+2] + a[3*1+1]*b[3*1+2] + a[3*1+2]*b[3*2+2],

		a[3*2+0]*b[3*0+0] + a[3*2+1]*b[3*1+0] + a[3*2+2]*b[3*2+0],
		a[3*2+0]*b[3*0+1] + a[3*2+1]*b[3*1+1] + a[3*2+2]*b[3*2+1],
		a[3*2+0]*b[3*0+2] + a[3*2+1]*b[3*1+2] + a[3*2+2]*b[3*2+2],
	}
}

func (m Mat3)Apply(v Vec3) Vec3 {
	return Vec3{
		m[3*0+0]*v[0] + m[3*0+1]*v[1] + m[3*0+2]*v[2],
		m[3*1+0]*v[0] + m[3*1+1]*v[1] + m[3*1+2]*v[2],
		m[3*2+0]*v[0] + m[3*2+1]*v[1] + m[3*2+2]*v[2],
	}
}

// Project maps a 2D point through the matrix and does the perspective
// divide. The bool is false if the point lands at infinity.
func (m Mat3)Project(p r2.Point) (r2.Point, bool) {
	v := m.Apply(Vec3{p.X, p.Y, 1})
	if math.Abs(v[2]) < EpsilonW {
		return r2.Point{}, false
	}
	return r2.Point{X: v[0] / v[2], Y: v[1] / v[2]}, true
}

// Normalized rescales so the bottom-right element is 1. It returns false
// if that element is too small to divide by.
func (m Mat3)Normalized(eps float64) (Mat3, bool) {
	if math.Abs(m[8]) < eps || math.IsNaN(m[8]) {
		return m, false
	}
	return m.Scale(1.0 / m[8]), true
}

func (m Mat3)Scale(s float64) Mat3 {
	for i := range m {
		m[i] *= s
	}
	return m
}

func (m Mat3)IsFinite() bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (m Mat3)Dense() *mat.Dense {
	return mat.NewDense(3, 3, m[:])
}

func Mat3FromDense(d mat.Matrix) Mat3 {
	m := Mat3{}
	for r:=0; r<3; r++ {
		for c:=0; c<3; c++ {
			m[3*r+c] = d.At(r, c)
		}
	}
	return m
}

// Inverse uses gonum's LU based inverse. A badly conditioned (but not
// singular) matrix is still returned.
func (m Mat3)Inverse() (Mat3, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.Dense()); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return Mat3{}, errors.Wrap(err, "mat3 inverse")
		}
	}
	out := Mat3FromDense(&inv)
	if !out.IsFinite() {
		return Mat3{}, errors.New("mat3 inverse: not finite")
	}
	return out, nil
}

func (m Mat3)String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*0+0], m[3*0+1], m[3*0+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*1+0], m[3*1+1], m[3*1+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*2+0], m[3*2+1], m[3*2+2])
	return str
}

func (v Vec3)String() string {
	return fmt.Sprintf("[%12.10f, %12.10f, %12.10f]", v[0], v[1], v[2])
}
