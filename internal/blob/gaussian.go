package blob

import (
	"fmt"
	"math"

	"github.com/anthonynsimon/bild/convolution"
)

// kernelTruncate is the kernel half-width in units of sigma.
const kernelTruncate = 4.0

// GaussianKernel returns the normalized 1D Gaussian kernel for sigma.
//
// The kernel has radius ceil(4*sigma) and length 2*radius+1, with the centre
// tap at index radius. Weights sum to 1.
func GaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(kernelTruncate * sigma))
	length := 2*radius + 1

	k := convolution.NewKernel(length, 1)
	sfactor := -0.5 / (sigma * sigma)
	for i := 0; i < length; i++ {
		x := float64(i - radius)
		k.Matrix[i] = math.Exp(sfactor * x * x)
	}

	norm := k.Normalized()
	weights := make([]float64, length)
	for i := range weights {
		weights[i] = norm.At(i, 0)
	}
	return weights
}

// Blur smooths img with a separable Gaussian of standard deviation sigma.
//
// Parameters:
//   - img: Source image. Never modified.
//   - sigma: Standard deviation in pixels. Must be >= 0.
//
// Returns:
//   - *Image: A new image. For sigma == 0 this is a copy of img.
//   - error: Non-nil if sigma is negative or not finite.
//
// # Boundary Handling
//
// Samples outside the image are mirrored about the edge, repeating the edge
// sample (d c b a | a b c d | d c b a). This keeps the total intensity of the
// image constant under blurring.
func Blur(img *Image, sigma float64) (*Image, error) {
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("blur sigma %v: must be a finite value >= 0", sigma)
	}
	if sigma == 0 {
		return img.Clone(), nil
	}

	kernel := GaussianKernel(sigma)
	tmp := NewImage(img.Width, img.Height)
	convolveRows(img, tmp, kernel)
	out := NewImage(img.Width, img.Height)
	convolveCols(tmp, out, kernel)
	return out, nil
}

// reflectIndex maps idx into [0, size) with edge-repeating mirror symmetry.
func reflectIndex(idx, size int) int {
	period := 2 * size
	idx %= period
	if idx < 0 {
		idx += period
	}
	if idx >= size {
		idx = period - 1 - idx
	}
	return idx
}

// convolveRows runs the kernel along each row of src into dst.
func convolveRows(src, dst *Image, kernel []float64) {
	w := src.Width
	half := len(kernel) / 2
	for y := 0; y < src.Height; y++ {
		row := src.Pix[y*w : (y+1)*w]
		out := dst.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var sum float64
			if x-half >= 0 && x+half < w {
				base := x - half
				for k, kv := range kernel {
					sum += row[base+k] * kv
				}
			} else {
				for k, kv := range kernel {
					sum += row[reflectIndex(x+k-half, w)] * kv
				}
			}
			out[x] = sum
		}
	}
}

// convolveCols runs the kernel down each column of src into dst.
func convolveCols(src, dst *Image, kernel []float64) {
	w, h := src.Width, src.Height
	half := len(kernel) / 2
	rowOffs := make([]int, len(kernel))
	for y := 0; y < h; y++ {
		for k := range kernel {
			rowOffs[k] = reflectIndex(y+k-half, h) * w
		}
		out := dst.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var sum float64
			for k, kv := range kernel {
				sum += src.Pix[rowOffs[k]+x] * kv
			}
			out[x] = sum
		}
	}
}
