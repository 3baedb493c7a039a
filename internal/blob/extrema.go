package blob

import "fmt"

// Default vote thresholds. Narrow mode can reach 14 votes, wide mode 38;
// both defaults require every comparison to pass.
const (
	DefaultNarrowThreshold = 14
	DefaultWideThreshold   = 38
)

// offset is a (row, column) displacement from the pixel under test.
type offset struct{ dr, dc int }

// neighborPair is tested as "centre exceeds both ends" and casts one vote.
type neighborPair struct{ a, b offset }

// narrowPairs are the four opposite-neighbor pairs of the 3x3 ring.
var narrowPairs = [...]neighborPair{
	{offset{-1, 0}, offset{1, 0}},
	{offset{0, -1}, offset{0, 1}},
	{offset{-1, -1}, offset{1, 1}},
	{offset{1, -1}, offset{-1, 1}},
}

// widePairs are the eight pairs of the radius-2 ring. The last four are
// reflected across one axis rather than through the centre.
var widePairs = [...]neighborPair{
	{offset{-2, 0}, offset{2, 0}},
	{offset{0, -2}, offset{0, 2}},
	{offset{-2, -2}, offset{2, 2}},
	{offset{2, -2}, offset{-2, 2}},
	{offset{2, -1}, offset{-2, -1}},
	{offset{-1, -2}, offset{-1, 2}},
	{offset{1, -2}, offset{1, 2}},
	{offset{2, 1}, offset{-2, 1}},
}

// ScanOptions controls ScanExtrema.
type ScanOptions struct {
	// Wide adds the radius-2 ring to the vote (24-neighbor test).
	Wide bool

	// Border is the number of pixels at each edge that are never flagged.
	// Values below the ring radius (1 narrow, 2 wide) are raised to it.
	Border int

	// NarrowThreshold and WideThreshold are the votes needed in each mode.
	// Zero selects DefaultNarrowThreshold / DefaultWideThreshold.
	NarrowThreshold int
	WideThreshold   int

	// Mask excludes pixels from being flagged. May be nil.
	Mask *Mask
}

func (o ScanOptions) threshold() int {
	if o.Wide {
		if o.WideThreshold > 0 {
			return o.WideThreshold
		}
		return DefaultWideThreshold
	}
	if o.NarrowThreshold > 0 {
		return o.NarrowThreshold
	}
	return DefaultNarrowThreshold
}

func (o ScanOptions) margin() int {
	ring := 1
	if o.Wide {
		ring = 2
	}
	if o.Border > ring {
		return o.Border
	}
	return ring
}

// ScanExtrema flags pixels of cur that dominate their neighborhood across
// the three adjacent DoG layers prev, cur and next.
//
// Each pixel collects one vote per neighbor pair and layer where it is
// strictly greater than both ends of the pair, plus one vote each for being
// at least the same-position value of prev and next. A pixel is a candidate
// when its vote count reaches the mode's threshold and it is not masked.
//
// Returns a mask of cur's shape with candidates set, or an error wrapping
// ErrShapeMismatch if the layers (or the mask) are not aligned.
func ScanExtrema(prev, cur, next *Image, opts ScanOptions) (*Mask, error) {
	if !cur.SameShape(prev) || !cur.SameShape(next) {
		return nil, fmt.Errorf("DoG layers are not aligned: %w", ErrShapeMismatch)
	}
	if opts.Mask != nil && (opts.Mask.Width != cur.Width || opts.Mask.Height != cur.Height) {
		return nil, fmt.Errorf("mask %dx%d for layer %dx%d: %w",
			opts.Mask.Width, opts.Mask.Height, cur.Width, cur.Height, ErrShapeMismatch)
	}

	out := NewMask(cur.Width, cur.Height)
	target := opts.threshold()
	m := opts.margin()
	layers := [3]*Image{cur, next, prev}

	for y := m; y < cur.Height-m; y++ {
		for x := m; x < cur.Width-m; x++ {
			if opts.Mask.At(x, y) {
				continue
			}
			if votes(layers, x, y, opts.Wide) >= target {
				out.Set(x, y, true)
			}
		}
	}
	return out, nil
}

// votes counts the passing comparisons for the pixel at (x, y) of layers[0].
func votes(layers [3]*Image, x, y int, wide bool) int {
	cur := layers[0]
	w := cur.Width
	idx := y*w + x
	v := cur.Pix[idx]

	n := 0
	for _, layer := range layers {
		n += pairVotes(layer.Pix, w, idx, v, narrowPairs[:])
	}
	if v >= layers[1].Pix[idx] {
		n++
	}
	if v >= layers[2].Pix[idx] {
		n++
	}
	if wide {
		for _, layer := range layers {
			n += pairVotes(layer.Pix, w, idx, v, widePairs[:])
		}
	}
	return n
}

func pairVotes(pix []float64, w, idx int, v float64, pairs []neighborPair) int {
	n := 0
	for _, p := range pairs {
		if v > pix[idx+p.a.dr*w+p.a.dc] && v > pix[idx+p.b.dr*w+p.b.dc] {
			n++
		}
	}
	return n
}

// Candidate is a pixel flagged by ScanExtrema, pending refinement.
type Candidate struct {
	Row   int `json:"row"`
	Col   int `json:"col"`
	Scale int `json:"scale"`
}

// Candidates lists the set pixels of a scan mask in row-major order.
func Candidates(flags *Mask, scale int) []Candidate {
	var out []Candidate
	for y := 0; y < flags.Height; y++ {
		for x := 0; x < flags.Width; x++ {
			if flags.Bits[y*flags.Width+x] {
				out = append(out, Candidate{Row: y, Col: x, Scale: scale})
			}
		}
	}
	return out
}
