package blob

import (
	"fmt"
	"math"
)

// Spot describes one isotropic Gaussian added by Synthetic.
type Spot struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Sigma     float64 `json:"sigma"`
	Amplitude float64 `json:"amplitude"`
}

// Synthetic renders spots onto a zero background.
//
// Each spot contributes Amplitude*exp(-r^2/(2*Sigma^2)) to every pixel,
// with r measured from (X, Y) in pixel units. Spots with a non-positive
// sigma are rejected.
func Synthetic(width, height int, spots []Spot) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("synthetic image %dx%d: %w", width, height, ErrShapeMismatch)
	}
	img := NewImage(width, height)
	for i, s := range spots {
		if !(s.Sigma > 0) {
			return nil, fmt.Errorf("spot %d: sigma %v must be > 0", i, s.Sigma)
		}
		f := -0.5 / (s.Sigma * s.Sigma)
		// Contributions beyond 38 sigma underflow to zero.
		reach := 38 * s.Sigma
		x0 := clampInt(int(math.Floor(s.X-reach)), 0, width)
		x1 := clampInt(int(math.Ceil(s.X+reach))+1, 0, width)
		y0 := clampInt(int(math.Floor(s.Y-reach)), 0, height)
		y1 := clampInt(int(math.Ceil(s.Y+reach))+1, 0, height)
		for y := y0; y < y1; y++ {
			dy := float64(y) - s.Y
			for x := x0; x < x1; x++ {
				dx := float64(x) - s.X
				img.Pix[y*width+x] += s.Amplitude * math.Exp(f*(dx*dx+dy*dy))
			}
		}
	}
	return img, nil
}

// TestPatternSpots returns 16 unit-amplitude spots with sigma from 0.5 to 8
// laid out on a 4x4 grid of 128-pixel cells, row by row.
func TestPatternSpots() []Spot {
	spots := make([]Spot, 0, 16)
	for i := 0; i < 16; i++ {
		spots = append(spots, Spot{
			X:         float64(64 + 128*(i%4)),
			Y:         float64(64 + 128*(i/4)),
			Sigma:     0.5 + 7.5*float64(i)/15,
			Amplitude: 1,
		})
	}
	return spots
}

// TestPattern renders TestPatternSpots on a 512x512 image.
func TestPattern() *Image {
	img, _ := Synthetic(512, 512, TestPatternSpots())
	return img
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
