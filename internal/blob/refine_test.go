package blob

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadraticLayers samples f = a - (x-x0)^2 - (y-y0)^2 - (s-s0)^2 on three
// layers at s = -1, 0, +1.
func quadraticLayers(w, h int, a, x0, y0, s0 float64) (prev, cur, next *Image) {
	layers := make([]*Image, 3)
	for i := range layers {
		s := float64(i - 1)
		img := NewImage(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dx, dy, ds := float64(x)-x0, float64(y)-y0, s-s0
				img.Set(x, y, a-dx*dx-dy*dy-ds*ds)
			}
		}
		layers[i] = img
	}
	return layers[0], layers[1], layers[2]
}

func TestSavitzkyGolayMoments(t *testing.T) {
	// Evaluate every filter on monomials over the 5x5 patch.
	moment := func(coef *[25]float64, px, py int) float64 {
		var patch [25]float64
		for r := 0; r < 5; r++ {
			for c := 0; c < 5; c++ {
				patch[r*5+c] = math.Pow(float64(c-2), float64(px)) * math.Pow(float64(r-2), float64(py))
			}
		}
		return dot25(coef, &patch)
	}

	assert.InDelta(t, 1.0, moment(&sgX0Y0, 0, 0), 1e-6)
	assert.InDelta(t, 1.0, moment(&sgX1Y0, 1, 0), 1e-6)
	assert.InDelta(t, 1.0, moment(&sgX0Y1, 0, 1), 1e-6)
	assert.InDelta(t, 1.0, moment(&sgX2Y0, 2, 0), 1e-6)
	assert.InDelta(t, 1.0, moment(&sgX0Y2, 0, 2), 1e-6)
	assert.InDelta(t, 0.0, moment(&sgX1Y0, 0, 1), 1e-6)
	assert.InDelta(t, 0.0, moment(&sgX2Y0, 0, 0), 1e-6)
}

// unitAxis maps layer offsets to 2*2^offset with no excess blur.
var unitAxis = ScaleAxis{Mid: 2, Ratio: 2}

func TestScaleAxis(t *testing.T) {
	a := ScaleAxis{Mid: 3, Ratio: math.Sqrt2}
	assert.InDelta(t, 3.0, a.Sigma(0), 1e-12)
	assert.InDelta(t, 3*math.Sqrt2, a.Sigma(1), 1e-12)
	assert.InDelta(t, 3/math.Sqrt2, a.Sigma(-1), 1e-12)

	a.Excess = 5
	assert.InDelta(t, 2.0, a.Sigma(0), 1e-12)
	a.Excess = -16
	assert.InDelta(t, 5.0, a.Sigma(0), 1e-12)

	a.Excess = 9
	assert.Zero(t, a.Sigma(0))
	assert.Zero(t, a.Sigma(-0.5))
	assert.Zero(t, ScaleAxis{Mid: math.Inf(1), Ratio: 2}.Sigma(0))
}

func TestRefine_SymmetricPeak(t *testing.T) {
	prev, cur, next := quadraticLayers(15, 15, 50, 7, 6, 0)
	kps, stats := Refine(prev, cur, next, []Candidate{{Row: 6, Col: 7, Scale: 2}}, ScaleAxis{Mid: 3, Ratio: math.Sqrt2})

	require.Len(t, kps, 1)
	assert.Equal(t, RefineStats{Candidates: 1, Accepted: 1}, stats)
	assert.InDelta(t, 7.0, kps[0].X, 1e-6)
	assert.InDelta(t, 6.0, kps[0].Y, 1e-6)
	assert.InDelta(t, 3.0, kps[0].Sigma, 1e-6)
	assert.Equal(t, cur.At(7, 6), kps[0].Peak)
	assert.Equal(t, 2, kps[0].Scale)
}

func TestRefine_NewtonStep(t *testing.T) {
	// For f = a - u^2 - v^2 - s^2 shifted by (ux, vy, s0), the fitted
	// gradient is (2vy, 2ux, 2s0) and the filter Hessian diag(-1, -1, -1/2),
	// so the position correction is (-2vy, -2ux). The full-weight Hessian
	// is diag(-2, -2, -2) and puts the scale extremum at s0.
	const ux, vy, s0 = 0.2, -0.3, 0.1
	prev, cur, next := quadraticLayers(15, 15, 10, 7+ux, 7+vy, s0)
	kps, stats := Refine(prev, cur, next, []Candidate{{Row: 7, Col: 7}}, unitAxis)

	require.Len(t, kps, 1, "stats: %+v", stats)
	assert.InDelta(t, 7+2*ux, kps[0].X, 1e-4)
	assert.InDelta(t, 7+2*vy, kps[0].Y, 1e-4)
	assert.InDelta(t, 2*math.Pow(2, s0), kps[0].Sigma, 1e-4)
}

func TestRefine_ScaleOffset(t *testing.T) {
	tests := []struct {
		name     string
		s0       float64
		axis     ScaleAxis
		accepted bool
		sigma    float64
	}{
		{"below current layer", -0.4, unitAxis, true, 2 * math.Pow(2, -0.4)},
		{"above current layer", 0.9, unitAxis, true, 2 * math.Pow(2, 0.9)},
		{"excess removed", 0.5, ScaleAxis{Mid: 2, Ratio: 2, Excess: 4}, true, 2},
		{"beyond next layer", 1.2, unitAxis, false, 0},
		{"beyond previous layer", -1.5, unitAxis, false, 0},
		{"no positive width", 0, ScaleAxis{Mid: 1, Ratio: 2, Excess: 4}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, cur, next := quadraticLayers(15, 15, 10, 7, 7, tt.s0)
			kps, stats := Refine(prev, cur, next, []Candidate{{Row: 7, Col: 7}}, tt.axis)
			if !tt.accepted {
				assert.Empty(t, kps)
				assert.Equal(t, RefineStats{Candidates: 1, Displaced: 1}, stats)
				return
			}
			require.Len(t, kps, 1, "stats: %+v", stats)
			assert.InDelta(t, 7.0, kps[0].X, 1e-4)
			assert.InDelta(t, 7.0, kps[0].Y, 1e-4)
			assert.InDelta(t, tt.sigma, kps[0].Sigma, 1e-4)
		})
	}
}

func TestRefine_RejectsLargeCorrection(t *testing.T) {
	// ux = 0.6 gives a column correction of 1.2 pixels.
	prev, cur, next := quadraticLayers(15, 15, 10, 7.6, 7, 0)
	kps, stats := Refine(prev, cur, next, []Candidate{{Row: 7, Col: 7}}, unitAxis)

	assert.Empty(t, kps)
	assert.Equal(t, 1, stats.Displaced)
}

func TestRefine_SingularHessian(t *testing.T) {
	for name, v := range map[string]float64{"zero": 0, "constant": 5} {
		flat := constantImage(12, 12, v)
		kps, stats := Refine(flat, flat, flat, []Candidate{{Row: 6, Col: 6}}, unitAxis)
		assert.Empty(t, kps, name)
		assert.Equal(t, 1, stats.Singular, name)
	}
}

func TestRefine_Boundary(t *testing.T) {
	prev, cur, next := quadraticLayers(12, 10, 10, 5, 5, 0)
	cands := []Candidate{
		{Row: 1, Col: 5},
		{Row: 5, Col: 1},
		{Row: 8, Col: 5},
		{Row: 5, Col: 10},
		{Row: 5, Col: 5},
	}
	kps, stats := Refine(prev, cur, next, cands, unitAxis)
	assert.Len(t, kps, 1)
	assert.Equal(t, 4, stats.Boundary)
	assert.Equal(t, 1, stats.Accepted)
}

func TestRefine_DisplacementInvariant(t *testing.T) {
	prev, cur, next := noiseImage(30, 30, 11), noiseImage(30, 30, 12), noiseImage(30, 30, 13)
	var cands []Candidate
	origin := make(map[float64][2]int)
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			cands = append(cands, Candidate{Row: y, Col: x})
			origin[cur.At(x, y)] = [2]int{x, y}
		}
	}

	kps, stats := Refine(prev, cur, next, cands, ScaleAxis{Mid: 1, Ratio: math.Sqrt2, Excess: -0.0625})
	assert.Equal(t, len(cands), stats.Candidates)
	assert.Equal(t, stats.Candidates, stats.Accepted+stats.Boundary+stats.Singular+stats.Displaced)
	assert.Equal(t, 26*26, stats.Candidates-stats.Boundary)
	assert.Len(t, kps, stats.Accepted)

	// Noise samples are distinct, so Peak identifies the candidate.
	for _, kp := range kps {
		at, ok := origin[kp.Peak]
		require.True(t, ok)
		dx, dy := kp.X-float64(at[0]), kp.Y-float64(at[1])
		assert.Less(t, math.Abs(dx), 1.0)
		assert.Less(t, math.Abs(dy), 1.0)
		assert.Less(t, math.Hypot(dx, dy), math.Sqrt2)
		assert.Greater(t, kp.Sigma, 1/math.Sqrt2)
		assert.Less(t, kp.Sigma, 1.5)
	}
}

func TestRefine_ShapeMismatch(t *testing.T) {
	a, b := NewImage(10, 10), NewImage(11, 10)
	kps, stats := Refine(a, a, b, []Candidate{{Row: 5, Col: 5}}, unitAxis)
	assert.Empty(t, kps)
	assert.Equal(t, 1, stats.Boundary)
}
