package blob

import (
	"fmt"
	"math"
)

// SigmaStep is one entry of an octave's sigma schedule.
type SigmaStep struct {
	// Sigma is the absolute blur of the layer, in octave-local pixels.
	Sigma float64 `json:"sigma"`

	// Increment is the extra blur applied to the previous layer to reach
	// Sigma. It is 0 for the first entry, which is the already blurred base.
	Increment float64 `json:"increment"`
}

// SigmaSchedule lists the blur levels of one octave in increasing order.
type SigmaSchedule []SigmaStep

// NewSigmaSchedule computes the scalesPerOctave+3 blur levels that take an
// image from initial to beyond destination.
//
// Level i has sigma initial*(destination/initial)^(i/scalesPerOctave), so
// level scalesPerOctave lands exactly on destination. Each increment is the
// Gaussian that, composed with the previous level, yields the next one.
func NewSigmaSchedule(initial, destination float64, scalesPerOctave int) (SigmaSchedule, error) {
	if scalesPerOctave < 1 {
		return nil, fmt.Errorf("scales per octave %d < 1: %w", scalesPerOctave, ErrInvalidConfig)
	}
	if math.IsInf(initial, 0) || math.IsInf(destination, 0) || math.IsNaN(destination) ||
		!(initial > 0) || destination <= initial {
		return nil, fmt.Errorf("sigma range %v..%v: %w", initial, destination, ErrInvalidConfig)
	}

	ratio := destination / initial
	growth := math.Sqrt(math.Pow(ratio, 2.0/float64(scalesPerOctave)) - 1.0)

	schedule := make(SigmaSchedule, 0, scalesPerOctave+3)
	schedule = append(schedule, SigmaStep{Sigma: initial})
	previous := initial
	for i := 1; i < scalesPerOctave+3; i++ {
		abs := initial * math.Pow(ratio, float64(i)/float64(scalesPerOctave))
		schedule = append(schedule, SigmaStep{Sigma: abs, Increment: previous * growth})
		previous = abs
	}
	return schedule, nil
}

// DoGCount is the number of DoG layers BuildOctave produces for the schedule.
func (s SigmaSchedule) DoGCount() int {
	if len(s) == 0 {
		return 0
	}
	return len(s) - 1
}

// InitialBlur returns the blur that raises an image already smoothed by
// current to the schedule's first level, or 0 when no blur is needed.
func InitialBlur(current, initial float64) float64 {
	if initial > current {
		return math.Sqrt(initial*initial - current*current)
	}
	return 0
}
