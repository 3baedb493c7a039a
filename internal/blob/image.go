package blob

import (
	"fmt"
)

// Image is a dense, row-major 2D array of float64 samples.
//
// Pix[y*Width+x] holds the sample at column x, row y. Images produced by the
// pyramid are owned by it; scanners and refiners only read them.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// NewImage allocates a zero-filled image of the given size.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// NewImageFromSlice wraps pix as a width x height image without copying.
//
// Returns an error wrapping ErrShapeMismatch if len(pix) != width*height.
func NewImageFromSlice(width, height int, pix []float64) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image size %dx%d: %w", width, height, ErrShapeMismatch)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("image %dx%d needs %d samples, got %d: %w",
			width, height, width*height, len(pix), ErrShapeMismatch)
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// NewImageFromFloat32 copies a single precision buffer into a new Image.
func NewImageFromFloat32(width, height int, pix []float32) (*Image, error) {
	if width <= 0 || height <= 0 || len(pix) != width*height {
		return nil, fmt.Errorf("image %dx%d from %d float32 samples: %w",
			width, height, len(pix), ErrShapeMismatch)
	}
	img := NewImage(width, height)
	for i, v := range pix {
		img.Pix[i] = float64(v)
	}
	return img, nil
}

// At returns the sample at column x, row y. No bounds checking beyond the slice's own.
func (m *Image) At(x, y int) float64 {
	return m.Pix[y*m.Width+x]
}

// Set stores v at column x, row y.
func (m *Image) Set(x, y int, v float64) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy of the image.
func (m *Image) Clone() *Image {
	out := NewImage(m.Width, m.Height)
	copy(out.Pix, m.Pix)
	return out
}

// SameShape reports whether two images have identical dimensions.
func (m *Image) SameShape(o *Image) bool {
	return o != nil && m.Width == o.Width && m.Height == o.Height
}

// Sub returns m - o as a new image. Both images must share a shape.
func (m *Image) Sub(o *Image) (*Image, error) {
	if !m.SameShape(o) {
		return nil, fmt.Errorf("subtract %dx%d from %dx%d: %w", o.Width, o.Height, m.Width, m.Height, ErrShapeMismatch)
	}
	out := NewImage(m.Width, m.Height)
	for i := range m.Pix {
		out.Pix[i] = m.Pix[i] - o.Pix[i]
	}
	return out, nil
}

// Bin2 down-samples the image by averaging non-overlapping 2x2 blocks.
//
// The result is floor(Width/2) x floor(Height/2); an odd trailing row or
// column is dropped.
func (m *Image) Bin2() *Image {
	w, h := m.Width/2, m.Height/2
	out := NewImage(w, h)
	for y := 0; y < h; y++ {
		r0 := (2 * y) * m.Width
		r1 := r0 + m.Width
		for x := 0; x < w; x++ {
			c := 2 * x
			out.Pix[y*w+x] = (m.Pix[r0+c] + m.Pix[r0+c+1] + m.Pix[r1+c] + m.Pix[r1+c+1]) / 4
		}
	}
	return out
}

// MinMax returns the smallest and largest sample.
func (m *Image) MinMax() (lo, hi float64) {
	if len(m.Pix) == 0 {
		return 0, 0
	}
	lo, hi = m.Pix[0], m.Pix[0]
	for _, v := range m.Pix[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Mask marks pixels excluded from detection. A true bit means "ignore".
type Mask struct {
	Width  int
	Height int
	Bits   []bool
}

// NewMask allocates an all-false mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Bits: make([]bool, width*height)}
}

// At reports whether the pixel at (x, y) is excluded. A nil mask excludes nothing.
func (k *Mask) At(x, y int) bool {
	if k == nil {
		return false
	}
	return k.Bits[y*k.Width+x]
}

// Set marks or clears the pixel at (x, y).
func (k *Mask) Set(x, y int, v bool) {
	k.Bits[y*k.Width+x] = v
}

// Count returns the number of set bits.
func (k *Mask) Count() int {
	if k == nil {
		return 0
	}
	n := 0
	for _, b := range k.Bits {
		if b {
			n++
		}
	}
	return n
}

// Bin2 down-samples the mask alongside Image.Bin2. A binned pixel is
// excluded when any of its four source pixels was.
func (k *Mask) Bin2() *Mask {
	if k == nil {
		return nil
	}
	w, h := k.Width/2, k.Height/2
	out := NewMask(w, h)
	for y := 0; y < h; y++ {
		r0 := (2 * y) * k.Width
		r1 := r0 + k.Width
		for x := 0; x < w; x++ {
			c := 2 * x
			out.Bits[y*w+x] = k.Bits[r0+c] || k.Bits[r0+c+1] || k.Bits[r1+c] || k.Bits[r1+c+1]
		}
	}
	return out
}
