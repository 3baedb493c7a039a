package blob

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a keypoint list.
type Summary struct {
	Count          int         `json:"count"`
	SigmaMin       float64     `json:"sigma_min"`
	SigmaMax       float64     `json:"sigma_max"`
	SigmaMean      float64     `json:"sigma_mean"`
	SigmaStdDev    float64     `json:"sigma_stddev"`
	PeakMax        float64     `json:"peak_max"`
	CountPerOctave map[int]int `json:"count_per_octave"`
}

// Sigmas extracts the Sigma of every keypoint.
func Sigmas(kps []Keypoint) []float64 {
	out := make([]float64, len(kps))
	for i, kp := range kps {
		out[i] = kp.Sigma
	}
	return out
}

// Summarize computes count and sigma statistics. The zero Summary (with an
// empty per-octave map) is returned for an empty list.
func Summarize(kps []Keypoint) Summary {
	s := Summary{Count: len(kps), CountPerOctave: map[int]int{}}
	if len(kps) == 0 {
		return s
	}
	sigmas := Sigmas(kps)
	peaks := make([]float64, len(kps))
	for i, kp := range kps {
		peaks[i] = kp.Peak
		s.CountPerOctave[kp.Octave]++
	}
	s.SigmaMin = floats.Min(sigmas)
	s.SigmaMax = floats.Max(sigmas)
	s.PeakMax = floats.Max(peaks)
	if len(sigmas) > 1 {
		s.SigmaMean, s.SigmaStdDev = stat.MeanStdDev(sigmas, nil)
	} else {
		s.SigmaMean = sigmas[0]
	}
	return s
}
