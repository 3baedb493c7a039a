package blob

import "fmt"

// Octave holds the blurred layers of one octave and their pairwise
// differences. DoGs[i] = Blurs[i] - Blurs[i+1].
type Octave struct {
	Schedule SigmaSchedule
	Blurs    []*Image
	DoGs     []*Image
}

// BuildOctave blurs base through the schedule and computes the DoG stack.
//
// The entry with a zero increment keeps base as the first layer (base is not
// copied and must not be mutated while the octave is alive). Every later
// entry blurs the previous layer by its increment.
//
// Returns an error wrapping ErrInvalidSchedule when the schedule would give
// fewer than three DoG layers, which leaves no interior scale to search.
func BuildOctave(base *Image, schedule SigmaSchedule) (*Octave, error) {
	if schedule.DoGCount() < 3 {
		return nil, fmt.Errorf("schedule of %d entries gives %d DoG layers, need 3: %w",
			len(schedule), schedule.DoGCount(), ErrInvalidSchedule)
	}
	if schedule[0].Increment != 0 {
		return nil, fmt.Errorf("first schedule entry has increment %v, want 0: %w",
			schedule[0].Increment, ErrInvalidSchedule)
	}

	oct := &Octave{
		Schedule: schedule,
		Blurs:    make([]*Image, 0, len(schedule)),
		DoGs:     make([]*Image, 0, len(schedule)-1),
	}

	previous := base
	for i, step := range schedule {
		if step.Increment == 0 {
			if i != 0 {
				return nil, fmt.Errorf("schedule entry %d has zero increment: %w", i, ErrInvalidSchedule)
			}
			oct.Blurs = append(oct.Blurs, previous)
			continue
		}
		next, err := Blur(previous, step.Increment)
		if err != nil {
			return nil, fmt.Errorf("blur level %d: %w", i, err)
		}
		dog, err := previous.Sub(next)
		if err != nil {
			return nil, err
		}
		oct.Blurs = append(oct.Blurs, next)
		oct.DoGs = append(oct.DoGs, dog)
		previous = next
	}
	return oct, nil
}
