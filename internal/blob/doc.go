// Package blob implements a scale-space blob detector.
//
// Blobs are localized intensity peaks of varying characteristic size, such as
// Bragg peaks on a diffraction detector or stars on a sky frame. The detector
// finds them with a Difference-of-Gaussian (DoG) pyramid and refines each one
// to sub-pixel position and sub-scale precision.
//
// # Pipeline
//
// For every octave:
//
//  1. Sigma schedule: scales_per_octave+3 blur levels growing geometrically
//     from InitialSigma so that level scales_per_octave equals
//     DestinationSigma (see NewSigmaSchedule).
//  2. Pyramid: the octave image is blurred level by level, and each pair of
//     neighboring levels is subtracted into a DoG layer (BuildOctave).
//  3. Extrema: every interior DoG layer is compared with the layers above
//     and below; pixels that win nearly every neighbor comparison become
//     candidates (ScanExtrema).
//  4. Refinement: a quartic Savitzky-Golay fit over a 5x5x3 neighborhood
//     gives the Hessian and gradient in (row, column, scale); the Newton
//     step locates the true extremum (Refine).
//  5. Down-sampling: the DestinationSigma layer is binned 2x2 and becomes
//     the next octave's input.
//
// # Coordinate System
//
// Images are row-major with (0,0) at the top-left. Keypoint X is the column
// and Y the row, both as sub-pixel floats. Detector.Detect reports every
// keypoint in the frame of its input: values found in octave k are scaled
// by 2^k, as is their Sigma.
//
// # Errors
//
// Configuration problems (ErrInvalidConfig, ErrInvalidSchedule) are returned
// before any pyramid work. Candidates that cannot be refined (patch outside
// the image, singular Hessian, correction of a pixel or more) are dropped
// silently and only counted in RefineStats.
//
// # Concurrency
//
// All functions are pure with respect to their inputs. A Detector may be
// shared; set Params.Workers to process the scales of an octave in parallel.
package blob
