package blob

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
)

// Params configures a Detector.
type Params struct {
	// CurrentSigma is the blur already present in the input. 0.25 means
	// neighboring pixels do not interact.
	CurrentSigma float64 `json:"current_sigma"`

	// InitialSigma is the first scale searched in every octave.
	InitialSigma float64 `json:"initial_sigma"`

	// DestinationSigma is the scale at which an octave ends and the image is
	// halved.
	DestinationSigma float64 `json:"destination_sigma"`

	// ScalesPerOctave is the number of intermediate scales searched.
	ScalesPerOctave int `json:"scales_per_octave"`

	// WideNeighborTest selects the 24-neighbor vote instead of the 8-neighbor one.
	WideNeighborTest bool `json:"wide_neighbor_test"`

	// BorderSize is the number of pixels at each image edge that are not scanned.
	BorderSize int `json:"border_size"`

	// NarrowThreshold and WideThreshold are the vote counts a pixel needs in
	// each mode. Zero selects the defaults (14 and 38).
	NarrowThreshold int `json:"narrow_threshold,omitempty"`
	WideThreshold   int `json:"wide_threshold,omitempty"`

	// Workers bounds the number of scales processed concurrently. Values
	// below 2 run sequentially.
	Workers int `json:"workers,omitempty"`

	// Mask excludes pixels of the full-resolution input. May be nil.
	Mask *Mask `json:"-"`
}

// DefaultParams returns the standard detector configuration.
func DefaultParams() Params {
	return Params{
		CurrentSigma:     0.25,
		InitialSigma:     0.5,
		DestinationSigma: 8.0,
		ScalesPerOctave:  8,
		WideNeighborTest: true,
		BorderSize:       5,
		NarrowThreshold:  DefaultNarrowThreshold,
		WideThreshold:    DefaultWideThreshold,
	}
}

// Validate checks the parameters. Every failure wraps ErrInvalidConfig.
func (p Params) Validate() error {
	if p.ScalesPerOctave < 1 {
		return fmt.Errorf("scales_per_octave must be >= 1, got %d: %w", p.ScalesPerOctave, ErrInvalidConfig)
	}
	if !finite(p.CurrentSigma) || p.CurrentSigma < 0 {
		return fmt.Errorf("current_sigma must be finite and >= 0, got %v: %w", p.CurrentSigma, ErrInvalidConfig)
	}
	if !finite(p.InitialSigma) || !(p.InitialSigma > 0) {
		return fmt.Errorf("initial_sigma must be finite and > 0, got %v: %w", p.InitialSigma, ErrInvalidConfig)
	}
	if !finite(p.DestinationSigma) || !(p.DestinationSigma > p.InitialSigma) {
		return fmt.Errorf("destination_sigma %v must exceed initial_sigma %v: %w",
			p.DestinationSigma, p.InitialSigma, ErrInvalidConfig)
	}
	if p.BorderSize < 0 {
		return fmt.Errorf("border_size must be >= 0, got %d: %w", p.BorderSize, ErrInvalidConfig)
	}
	if p.NarrowThreshold < 0 || p.WideThreshold < 0 {
		return fmt.Errorf("vote thresholds must be >= 0: %w", ErrInvalidConfig)
	}
	schedule, err := NewSigmaSchedule(p.InitialSigma, p.DestinationSigma, p.ScalesPerOctave)
	if err != nil {
		return err
	}
	if schedule.DoGCount() < 3 {
		return fmt.Errorf("schedule gives %d DoG layers, need 3: %w", schedule.DoGCount(), ErrInvalidConfig)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// excessVariance is the blur variance each layer of the given octave holds
// beyond its schedule sigma, in octave-local pixels. Octave 0 sees the input
// blur replaced by InitialSigma; every later octave inherits the binned
// DestinationSigma layer, whose 2x2 averaging adds a variance of 1/4
// before the halving.
func (p Params) excessVariance(octave int) float64 {
	c0 := math.Min(p.CurrentSigma, p.InitialSigma)
	excess := -c0 * c0
	init2 := p.InitialSigma * p.InitialSigma
	dest2 := p.DestinationSigma * p.DestinationSigma
	for k := 0; k < octave; k++ {
		excess = (excess+dest2+0.25)/4 + math.Max(0, init2-dest2/4) - init2
	}
	return excess
}

func (p Params) scanOptions(mask *Mask) ScanOptions {
	return ScanOptions{
		Wide:            p.WideNeighborTest,
		Border:          p.BorderSize,
		NarrowThreshold: p.NarrowThreshold,
		WideThreshold:   p.WideThreshold,
		Mask:            mask,
	}
}

// minSize is the smallest image edge that still has a scannable interior.
func (p Params) minSize() int {
	m := p.scanOptions(nil).margin()
	if m < patchHalf {
		m = patchHalf
	}
	return 2*m + 1
}

// OctaveResult is the output of one octave pass.
type OctaveResult struct {
	// Octave is the index of the pass; 0 is the full-resolution image.
	Octave int

	// Width and Height are the dimensions of the octave image.
	Width  int
	Height int

	// Scales holds the keypoints of interior scale s at index s-1, in the
	// octave-local frame.
	Scales [][]Keypoint

	// Stats aggregates the refinement counters of all scales.
	Stats RefineStats

	// Next is the half-resolution input of the following octave, and
	// NextMask its mask (nil when the octave had none).
	Next     *Image
	NextMask *Mask
}

// Keypoints flattens Scales in scale order.
func (r *OctaveResult) Keypoints() []Keypoint {
	var out []Keypoint
	for _, s := range r.Scales {
		out = append(out, s...)
	}
	return out
}

// Result is the output of a full multi-octave run.
type Result struct {
	// Keypoints in the frame of the full-resolution input, ordered by
	// octave, then scale, then row-major pixel position.
	Keypoints []Keypoint `json:"keypoints"`

	// Octaves summarises each pass that ran.
	Octaves []OctaveSummary `json:"octaves"`

	// Stats aggregates the refinement counters of the whole run.
	Stats RefineStats `json:"stats"`
}

// OctaveSummary describes one pass of a Result.
type OctaveSummary struct {
	Octave    int         `json:"octave"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Reduction float64     `json:"reduction"`
	Keypoints int         `json:"keypoints"`
	Stats     RefineStats `json:"stats"`
}

// Detector runs the scale-space blob search.
//
// A Detector is immutable after construction apart from its logger and may
// be shared by concurrent callers.
type Detector struct {
	params   Params
	schedule SigmaSchedule
	logger   *log.Logger
}

// NewDetector validates p and precomputes its sigma schedule.
func NewDetector(p Params) (*Detector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	schedule, err := NewSigmaSchedule(p.InitialSigma, p.DestinationSigma, p.ScalesPerOctave)
	if err != nil {
		return nil, err
	}
	return &Detector{params: p, schedule: schedule}, nil
}

// SetLogger enables per-octave timing and count messages. nil disables them.
func (d *Detector) SetLogger(l *log.Logger) {
	d.logger = l
}

// Params returns the detector configuration.
func (d *Detector) Params() Params {
	return d.params
}

// Schedule returns a copy of the per-octave sigma schedule.
func (d *Detector) Schedule() SigmaSchedule {
	return append(SigmaSchedule(nil), d.schedule...)
}

func (d *Detector) logf(format string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

// DetectOctave runs one octave over img.
//
// Parameters:
//   - img: The octave's input. Never modified.
//   - mask: Exclusion mask aligned with img, or nil.
//   - octave: Index of the pass. Octave 0 assumes the input carries
//     CurrentSigma of blur; later octaves receive the binned
//     DestinationSigma layer and so carry DestinationSigma/2.
//
// Returns:
//   - *OctaveResult: Keypoints per interior scale in the frame of img, plus
//     the binned image (and mask) for the next octave.
//   - error: Non-nil if the mask does not match img or a blur fails.
func (d *Detector) DetectOctave(img *Image, mask *Mask, octave int) (*OctaveResult, error) {
	if mask != nil && (mask.Width != img.Width || mask.Height != img.Height) {
		return nil, fmt.Errorf("mask %dx%d for image %dx%d: %w",
			mask.Width, mask.Height, img.Width, img.Height, ErrInvalidConfig)
	}

	start := time.Now()
	current := d.params.CurrentSigma
	if octave > 0 {
		current = d.params.DestinationSigma / 2
	}

	base := img
	if sigma := InitialBlur(current, d.params.InitialSigma); sigma > 0 {
		var err error
		if base, err = Blur(img, sigma); err != nil {
			return nil, fmt.Errorf("initial blur: %w", err)
		}
	}

	oct, err := BuildOctave(base, d.schedule)
	if err != nil {
		return nil, err
	}

	scales := d.params.ScalesPerOctave
	result := &OctaveResult{
		Octave: octave,
		Width:  img.Width,
		Height: img.Height,
		Scales: make([][]Keypoint, scales),
	}
	stats := make([]RefineStats, scales)
	opts := d.params.scanOptions(mask)
	ratio := d.schedule[1].Sigma / d.schedule[0].Sigma
	excess := d.params.excessVariance(octave)

	scan := func(s int) error {
		flags, err := ScanExtrema(oct.DoGs[s-1], oct.DoGs[s], oct.DoGs[s+1], opts)
		if err != nil {
			return fmt.Errorf("scan scale %d: %w", s, err)
		}
		axis := ScaleAxis{
			Mid:    math.Sqrt(d.schedule[s].Sigma * d.schedule[s+1].Sigma),
			Ratio:  ratio,
			Excess: excess,
		}
		kps, st := Refine(oct.DoGs[s-1], oct.DoGs[s], oct.DoGs[s+1], Candidates(flags, s), axis)
		for i := range kps {
			kps[i].Octave = octave
		}
		result.Scales[s-1] = kps
		stats[s-1] = st
		return nil
	}

	if d.params.Workers > 1 {
		var g errgroup.Group
		g.SetLimit(d.params.Workers)
		for s := 1; s <= scales; s++ {
			s := s
			g.Go(func() error { return scan(s) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for s := 1; s <= scales; s++ {
			if err := scan(s); err != nil {
				return nil, err
			}
		}
	}

	for _, st := range stats {
		result.Stats.Add(st)
	}
	result.Next = oct.Blurs[scales].Bin2()
	result.NextMask = mask.Bin2()

	d.logf("octave %d (%dx%d): %d candidates, %d keypoints in %v",
		octave, img.Width, img.Height, result.Stats.Candidates, result.Stats.Accepted, time.Since(start))
	return result, nil
}

// Detect runs up to octaves passes over img, halving the image between them.
//
// Keypoints found in octave k have their position and sigma multiplied by
// 2^k so that all results share the frame of img. The run stops early,
// without error, once the image is too small to scan. Cancellation of ctx
// is checked between octaves.
//
// An empty keypoint list is a valid result. Configuration problems are
// reported before any image work and wrap ErrInvalidConfig.
func (d *Detector) Detect(ctx context.Context, img *Image, octaves int) (*Result, error) {
	if octaves < 1 {
		return nil, fmt.Errorf("octave count must be >= 1, got %d: %w", octaves, ErrInvalidConfig)
	}
	if img == nil || len(img.Pix) != img.Width*img.Height {
		return nil, fmt.Errorf("detect: %w", ErrShapeMismatch)
	}
	mask := d.params.Mask
	if mask != nil && (mask.Width != img.Width || mask.Height != img.Height) {
		return nil, fmt.Errorf("mask %dx%d for image %dx%d: %w",
			mask.Width, mask.Height, img.Width, img.Height, ErrInvalidConfig)
	}

	res := &Result{Keypoints: []Keypoint{}}
	current := img
	minSize := d.params.minSize()
	for k := 0; k < octaves; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if current.Width < minSize || current.Height < minSize {
			d.logf("octave %d: image %dx%d below %d pixels, stopping", k, current.Width, current.Height, minSize)
			break
		}

		oct, err := d.DetectOctave(current, mask, k)
		if err != nil {
			return nil, fmt.Errorf("octave %d: %w", k, err)
		}

		reduction := math.Ldexp(1, k)
		kps := oct.Keypoints()
		for _, kp := range kps {
			kp.X *= reduction
			kp.Y *= reduction
			kp.Sigma *= reduction
			res.Keypoints = append(res.Keypoints, kp)
		}
		res.Octaves = append(res.Octaves, OctaveSummary{
			Octave:    k,
			Width:     oct.Width,
			Height:    oct.Height,
			Reduction: reduction,
			Keypoints: len(kps),
			Stats:     oct.Stats,
		})
		res.Stats.Add(oct.Stats)

		current = oct.Next
		mask = oct.NextMask
	}
	return res, nil
}
