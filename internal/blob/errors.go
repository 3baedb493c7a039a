package blob

import "errors"

var (
	// ErrInvalidConfig is returned when detector parameters cannot produce a
	// usable scale space. It is raised before any pyramid work starts.
	ErrInvalidConfig = errors.New("invalid blob detector configuration")

	// ErrInvalidSchedule is returned by BuildOctave when the sigma schedule
	// would yield fewer than three DoG layers.
	ErrInvalidSchedule = errors.New("invalid sigma schedule")

	// ErrShapeMismatch is returned when images or masks that must be aligned
	// have different dimensions.
	ErrShapeMismatch = errors.New("image shape mismatch")
)
