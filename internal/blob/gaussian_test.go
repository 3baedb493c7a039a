package blob

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianKernel_Shape(t *testing.T) {
	for _, sigma := range []float64{0.5, 1, 1.3, 4} {
		k := GaussianKernel(sigma)
		radius := int(math.Ceil(4 * sigma))
		require.Len(t, k, 2*radius+1, "sigma=%v", sigma)

		var sum float64
		for i := range k {
			sum += k[i]
			assert.InDelta(t, k[i], k[len(k)-1-i], 1e-15, "kernel not symmetric at %d", i)
		}
		assert.InDelta(t, 1.0, sum, 1e-12)
		assert.Equal(t, radius, argmax(k))
	}
}

func TestGaussianKernel_StdDev(t *testing.T) {
	for _, sigma := range []float64{1, 2, 3.5, 8} {
		k := GaussianKernel(sigma)
		half := len(k) / 2
		var variance float64
		for i, w := range k {
			x := float64(i - half)
			variance += w * x * x
		}
		rel := math.Abs(math.Sqrt(variance)-sigma) / sigma
		assert.Less(t, rel, 1e-3, "sigma=%v measured=%v", sigma, math.Sqrt(variance))
	}
}

func TestBlur_ZeroSigmaIsIdentity(t *testing.T) {
	img := rampImage(7, 5)
	orig := img.Clone()

	out, err := Blur(img, 0)
	require.NoError(t, err)
	assert.Equal(t, orig.Pix, out.Pix)

	out.Pix[0] = 42
	assert.Equal(t, orig.Pix, img.Pix, "blur must not share storage with its input")
}

func TestBlur_DoesNotMutateInput(t *testing.T) {
	img := rampImage(16, 12)
	orig := img.Clone()

	_, err := Blur(img, 1.7)
	require.NoError(t, err)
	assert.Equal(t, orig.Pix, img.Pix)
}

func TestBlur_InvalidSigma(t *testing.T) {
	img := NewImage(4, 4)
	for _, sigma := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := Blur(img, sigma)
		assert.Error(t, err, "sigma=%v", sigma)
	}
}

func TestBlur_ConstantStaysConstant(t *testing.T) {
	img := NewImage(9, 6)
	for i := range img.Pix {
		img.Pix[i] = 3.25
	}
	out, err := Blur(img, 2.5)
	require.NoError(t, err)
	for i, v := range out.Pix {
		assert.InDelta(t, 3.25, v, 1e-12, "pixel %d", i)
	}
}

func TestBlur_PreservesTotal(t *testing.T) {
	img := NewImage(32, 24)
	img.Set(3, 4, 10)
	img.Set(20, 15, -4)
	img.Set(31, 23, 7)

	out, err := Blur(img, 1.5)
	require.NoError(t, err)
	assert.InDelta(t, sum(img.Pix), sum(out.Pix), 1e-9)
}

func TestBlur_ImpulseResponse(t *testing.T) {
	img := NewImage(41, 41)
	img.Set(20, 20, 1)

	out, err := Blur(img, 2)
	require.NoError(t, err)

	k := GaussianKernel(2)
	c := len(k) / 2
	assert.InDelta(t, k[c]*k[c], out.At(20, 20), 1e-15)
	assert.InDelta(t, k[c+3]*k[c-1], out.At(23, 19), 1e-15)
	assert.InDelta(t, out.At(17, 20), out.At(23, 20), 1e-15)
}

func TestReflectIndex(t *testing.T) {
	tests := []struct {
		idx, size, want int
	}{
		{0, 4, 0},
		{3, 4, 3},
		{-1, 4, 0},
		{-2, 4, 1},
		{-4, 4, 3},
		{-5, 4, 3},
		{4, 4, 3},
		{5, 4, 2},
		{8, 4, 0},
		{-3, 1, 0},
		{6, 1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reflectIndex(tt.idx, tt.size), "reflectIndex(%d, %d)", tt.idx, tt.size)
	}
}

// rampImage returns an image whose samples are their own pixel index.
func rampImage(w, h int) *Image {
	img := NewImage(w, h)
	for i := range img.Pix {
		img.Pix[i] = float64(i)
	}
	return img
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
