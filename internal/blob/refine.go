package blob

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// patchHalf is the half-width of the 5x5 fitting patch.
const patchHalf = 2

// Savitzky-Golay order 4, patch 5 coefficients. Each vector is applied to a
// 5x5 patch flattened row by row (row = y, column = x). X0Y0 estimates the
// smoothed central value, XnYm the n-th x and m-th y derivative.
var (
	sgX0Y0 = [25]float64{
		0.04163265, -0.08081633, 0.07836735, -0.08081633, 0.04163265,
		-0.08081633, -0.01959184, 0.20081633, -0.01959184, -0.08081633,
		0.07836735, 0.20081633, 0.44163265, 0.20081633, 0.07836735,
		-0.08081633, -0.01959184, 0.20081633, -0.01959184, -0.08081633,
		0.04163265, -0.08081633, 0.07836735, -0.08081633, 0.04163265,
	}
	sgX1Y0 = [25]float64{
		0.07380952, -0.10476190, 0.00000000, 0.10476190, -0.07380952,
		-0.01190476, -0.14761905, 0.00000000, 0.14761905, 0.01190476,
		-0.04047619, -0.16190476, 0.00000000, 0.16190476, 0.04047619,
		-0.01190476, -0.14761905, 0.00000000, 0.14761905, 0.01190476,
		0.07380952, -0.10476190, 0.00000000, 0.10476190, -0.07380952,
	}
	sgX2Y0 = [25]float64{
		-0.04914966, 0.15374150, -0.20918367, 0.15374150, -0.04914966,
		0.01207483, 0.12312925, -0.27040816, 0.12312925, 0.01207483,
		0.03248299, 0.11292517, -0.29081633, 0.11292517, 0.03248299,
		0.01207483, 0.12312925, -0.27040816, 0.12312925, 0.01207483,
		-0.04914966, 0.15374150, -0.20918367, 0.15374150, -0.04914966,
	}
	sgX0Y1 = [25]float64{
		0.07380952, -0.01190476, -0.04047619, -0.01190476, 0.07380952,
		-0.10476190, -0.14761905, -0.16190476, -0.14761905, -0.10476190,
		0.00000000, 0.00000000, 0.00000000, 0.00000000, 0.00000000,
		0.10476190, 0.14761905, 0.16190476, 0.14761905, 0.10476190,
		-0.07380952, 0.01190476, 0.04047619, 0.01190476, -0.07380952,
	}
	sgX1Y1 = [25]float64{
		-0.07333333, 0.10500000, 0.00000000, -0.10500000, 0.07333333,
		0.10500000, 0.12333333, 0.00000000, -0.12333333, -0.10500000,
		0.00000000, 0.00000000, 0.00000000, 0.00000000, 0.00000000,
		-0.10500000, -0.12333333, 0.00000000, 0.12333333, 0.10500000,
		0.07333333, -0.10500000, 0.00000000, 0.10500000, -0.07333333,
	}
	sgX0Y2 = [25]float64{
		-0.04914966, 0.01207483, 0.03248299, 0.01207483, -0.04914966,
		0.15374150, 0.12312925, 0.11292517, 0.12312925, 0.15374150,
		-0.20918367, -0.27040816, -0.29081633, -0.27040816, -0.20918367,
		0.15374150, 0.12312925, 0.11292517, 0.12312925, 0.15374150,
		-0.04914966, 0.01207483, 0.03248299, 0.01207483, -0.04914966,
	}
)

// Keypoint is a refined blob detection.
//
// X and Y are sub-pixel coordinates (column, row) and Sigma the refined
// scale. Keypoints returned by Detector.Detect are expressed in the frame of
// the full-resolution input; those from Refine and DetectOctave in the frame
// of the octave image they were found in.
type Keypoint struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Sigma  float64 `json:"sigma"`
	Peak   float64 `json:"peak"`
	Octave int     `json:"octave"`
	Scale  int     `json:"scale"`
}

// RefineStats counts what happened to the candidates of a refinement pass.
type RefineStats struct {
	Candidates int `json:"candidates"`
	Accepted   int `json:"accepted"`
	// Boundary counts candidates whose 5x5 patch leaves the layers.
	Boundary int `json:"boundary"`
	// Singular counts candidates whose 3x3 system could not be solved.
	Singular int `json:"singular"`
	// Displaced counts candidates whose correction moved them a pixel or
	// more, or a full layer or more along the scale axis.
	Displaced int `json:"displaced"`
}

// Add accumulates o into s.
func (s *RefineStats) Add(o RefineStats) {
	s.Candidates += o.Candidates
	s.Accepted += o.Accepted
	s.Boundary += o.Boundary
	s.Singular += o.Singular
	s.Displaced += o.Displaced
}

// ScaleAxis converts a fractional position along the layer axis of an
// octave into a blob sigma.
//
// A DoG layer built from blurs sigma and sigma*Ratio responds most strongly
// to a Gaussian blob whose total blur is sigma*sqrt(Ratio). Mid is that
// value for the current layer. Excess is the blur variance every layer
// holds on top of its schedule sigma, measured against the blob itself; it
// is removed so that Sigma reports the blob's own width.
type ScaleAxis struct {
	Mid    float64
	Ratio  float64
	Excess float64
}

// Sigma returns the blob sigma at offset layers from the current one, or 0
// when the offset corresponds to no positive width.
func (a ScaleAxis) Sigma(offset float64) float64 {
	m := a.Mid * math.Pow(a.Ratio, offset)
	v := m*m - a.Excess
	if !(v > 0) || math.IsInf(v, 0) {
		return 0
	}
	return math.Sqrt(v)
}

// Refine fits a quartic surface around every candidate and returns the ones
// whose sub-pixel correction stays within one pixel.
//
// For each candidate, first and second derivatives in x, y and scale are
// estimated from 5x5 patches of the three DoG layers with Savitzky-Golay
// filters. The position correction delta = H^-1 * g (H the 3x3 Hessian over
// row, column and scale as assembled from the filter outputs, g the
// gradient) is accepted when |delta_row| < 1, |delta_col| < 1 and their
// Euclidean norm is below sqrt(2). The scale offset comes from the same
// system with second derivatives at full weight, must stay below one layer,
// and is mapped to a sigma through axis.
//
// Rejected candidates are dropped silently; RefineStats records why. A
// singular or ill-conditioned Hessian is a rejection, not an error.
func Refine(prev, cur, next *Image, candidates []Candidate, axis ScaleAxis) ([]Keypoint, RefineStats) {
	stats := RefineStats{Candidates: len(candidates)}
	if !cur.SameShape(prev) || !cur.SameShape(next) {
		stats.Boundary = len(candidates)
		return nil, stats
	}

	keypoints := make([]Keypoint, 0, len(candidates))
	var pPrev, pCur, pNext [25]float64
	for _, c := range candidates {
		x, y := c.Col, c.Row
		if x < patchHalf || x >= cur.Width-patchHalf || y < patchHalf || y >= cur.Height-patchHalf {
			stats.Boundary++
			continue
		}
		extractPatch(prev, x, y, &pPrev)
		extractPatch(cur, x, y, &pCur)
		extractPatch(next, x, y, &pNext)

		fit := fitPatches(&pPrev, &pCur, &pNext)
		delta, ok := fit.solve(false)
		if !ok {
			stats.Singular++
			continue
		}
		if !withinPixel(delta) {
			stats.Displaced++
			continue
		}
		exact, ok := fit.solve(true)
		if !ok {
			stats.Singular++
			continue
		}
		sigma := axis.Sigma(-exact[2])
		if math.Abs(exact[2]) >= 1 || sigma <= 0 {
			stats.Displaced++
			continue
		}

		stats.Accepted++
		keypoints = append(keypoints, Keypoint{
			X:     float64(x) - delta[1],
			Y:     float64(y) - delta[0],
			Sigma: sigma,
			Peak:  cur.At(x, y),
			Scale: c.Scale,
		})
	}
	return keypoints, stats
}

// withinPixel is the acceptance test on a (row, col, scale) correction.
func withinPixel(delta [3]float64) bool {
	return math.Hypot(delta[0], delta[1]) < math.Sqrt2 &&
		math.Abs(delta[0]) < 1 && math.Abs(delta[1]) < 1
}

func extractPatch(img *Image, x, y int, dst *[25]float64) {
	i := 0
	for r := y - patchHalf; r <= y+patchHalf; r++ {
		row := img.Pix[r*img.Width:]
		for c := x - patchHalf; c <= x+patchHalf; c++ {
			dst[i] = row[c]
			i++
		}
	}
}

func dot25(a, b *[25]float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// patchFit holds the filter outputs around one candidate. The x^2 and y^2
// filters yield the quadratic coefficients, half the second derivatives,
// and d2s a quarter of the second difference across layers.
type patchFit struct {
	dx, dy, ds    float64
	d2x, d2y, d2s float64
	dxy, dxs, dys float64
}

func fitPatches(prev, cur, next *[25]float64) patchFit {
	sNext := dot25(&sgX0Y0, next)
	s := dot25(&sgX0Y0, cur)
	sPrev := dot25(&sgX0Y0, prev)
	return patchFit{
		dx:  dot25(&sgX1Y0, cur),
		dy:  dot25(&sgX0Y1, cur),
		ds:  (sNext - sPrev) / 2.0,
		d2x: dot25(&sgX2Y0, cur),
		d2y: dot25(&sgX0Y2, cur),
		d2s: (sNext + sPrev - 2.0*s) / 4.0,
		dxy: dot25(&sgX1Y1, cur),
		dxs: (dot25(&sgX1Y0, next) - dot25(&sgX1Y0, prev)) / 2.0,
		dys: (dot25(&sgX0Y1, next) - dot25(&sgX0Y1, prev)) / 2.0,
	}
}

// solve returns the (row, col, scale) offset of the extremum. With exact
// false the Hessian uses the filter outputs as they are, which doubles the
// spatial step and sets the acceptance window; with exact true the second
// derivatives are restored to full weight, giving the Newton step.
func (f patchFit) solve(exact bool) ([3]float64, bool) {
	d2y, d2x, d2s := f.d2y, f.d2x, f.d2s
	if exact {
		d2y, d2x, d2s = 2*d2y, 2*d2x, 4*d2s
	}
	hessian := mat.NewDense(3, 3, []float64{
		d2y, f.dxy, f.dys,
		f.dxy, d2x, f.dxs,
		f.dys, f.dxs, d2s,
	})
	gradient := mat.NewVecDense(3, []float64{f.dy, f.dx, f.ds})

	var delta mat.VecDense
	if err := delta.SolveVec(hessian, gradient); err != nil {
		return [3]float64{}, false
	}

	out := [3]float64{delta.AtVec(0), delta.AtVec(1), delta.AtVec(2)}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return [3]float64{}, false
		}
	}
	return out, true
}
