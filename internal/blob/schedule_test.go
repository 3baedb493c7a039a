package blob

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigmaSchedule_Defaults(t *testing.T) {
	s, err := NewSigmaSchedule(0.5, 8, 8)
	require.NoError(t, err)
	require.Len(t, s, 11)
	assert.Equal(t, 10, s.DoGCount())

	assert.Equal(t, SigmaStep{Sigma: 0.5}, s[0])
	assert.InDelta(t, 8.0, s[8].Sigma, 1e-12)
	assert.InDelta(t, 16.0, s[10].Sigma, 1e-12)

	for i := 1; i < len(s); i++ {
		assert.Greater(t, s[i].Sigma, s[i-1].Sigma, "entry %d not increasing", i)
		assert.Greater(t, s[i].Increment, 0.0)
		composed := math.Hypot(s[i-1].Sigma, s[i].Increment)
		assert.InDelta(t, s[i].Sigma, composed, 1e-12, "entry %d does not compose", i)
	}
}

func TestNewSigmaSchedule_Errors(t *testing.T) {
	tests := []struct {
		name                 string
		initial, destination float64
		scales               int
	}{
		{"zero scales", 0.5, 8, 0},
		{"negative scales", 0.5, 8, -2},
		{"destination equals initial", 2, 2, 4},
		{"destination below initial", 4, 2, 4},
		{"zero initial", 0, 8, 4},
		{"infinite destination", 0.5, math.Inf(1), 4},
		{"infinite initial", math.Inf(1), math.Inf(1), 4},
		{"NaN destination", 0.5, math.NaN(), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSigmaSchedule(tt.initial, tt.destination, tt.scales)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestInitialBlur(t *testing.T) {
	assert.InDelta(t, math.Sqrt(0.25-0.0625), InitialBlur(0.25, 0.5), 1e-15)
	assert.Equal(t, 0.0, InitialBlur(0.5, 0.5))
	assert.Equal(t, 0.0, InitialBlur(4, 0.5))
}
