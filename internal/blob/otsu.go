package blob

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultHistogramBins is the bin count used for sigma histograms.
const DefaultHistogramBins = 1000

// ErrTooFewValues is returned by OtsuThreshold when there is nothing to split.
var ErrTooFewValues = errors.New("not enough values to threshold")

// OtsuThreshold splits values into two classes by maximising the
// between-class variance of their histogram (Otsu's method).
//
// It is typically applied to keypoint sigmas to separate small, sharp
// features from broad ones. The returned threshold is the lower edge of the
// first bin of the upper class.
//
// Parameters:
//   - values: Samples to split. Not modified.
//   - bins: Number of histogram bins, >= 2.
//
// Returns an error wrapping ErrTooFewValues for fewer than two values.
func OtsuThreshold(values []float64, bins int) (float64, error) {
	if len(values) < 2 {
		return 0, fmt.Errorf("otsu on %d values: %w", len(values), ErrTooFewValues)
	}
	if bins < 2 {
		return 0, fmt.Errorf("otsu needs at least 2 bins, got %d", bins)
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return lo, nil
	}

	dividers := HistogramDividers(lo, hi, bins)
	counts := stat.Histogram(nil, dividers, sorted, nil)
	total := floats.Sum(counts)

	best, index := 0.0, 1
	for cut := 1; cut < bins; cut++ {
		var p1, p2, m1, m2 float64
		for i := 0; i < cut; i++ {
			p := counts[i] / total
			p1 += p
			m1 += float64(i) * p
		}
		for i := cut; i < bins; i++ {
			p := counts[i] / total
			p2 += p
			m2 += float64(i) * p
		}
		if p1 == 0 || p2 == 0 {
			continue
		}
		m1 /= p1
		m2 /= p2
		between := p1 * p2 * (m1 - m2) * (m1 - m2)
		if between > best {
			best = between
			index = cut
		}
	}
	return dividers[index], nil
}

// HistogramDividers returns bins+1 evenly spaced bin edges covering
// [lo, hi]. The last edge is nudged above hi so hi falls in the last bin.
func HistogramDividers(lo, hi float64, bins int) []float64 {
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	return dividers
}
