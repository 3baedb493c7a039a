package blob

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOtsuThreshold_Bimodal(t *testing.T) {
	var values []float64
	for i := 0; i < 50; i++ {
		values = append(values, 1+0.01*float64(i), 5+0.01*float64(i))
	}

	for _, bins := range []int{2, 16, DefaultHistogramBins} {
		th, err := OtsuThreshold(values, bins)
		require.NoError(t, err)
		assert.Greater(t, th, 1.49, "bins=%d", bins)
		assert.LessOrEqual(t, th, 5.0, "bins=%d", bins)
	}
}

func TestOtsuThreshold_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2, 9, 8}
	_, err := OtsuThreshold(values, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2, 9, 8}, values)
}

func TestOtsuThreshold_Degenerate(t *testing.T) {
	_, err := OtsuThreshold(nil, 10)
	assert.True(t, errors.Is(err, ErrTooFewValues))

	_, err = OtsuThreshold([]float64{2}, 10)
	assert.True(t, errors.Is(err, ErrTooFewValues))

	_, err = OtsuThreshold([]float64{1, 2}, 1)
	assert.Error(t, err)

	th, err := OtsuThreshold([]float64{4, 4, 4}, 10)
	require.NoError(t, err)
	assert.Equal(t, 4.0, th)
}

func TestHistogramDividers(t *testing.T) {
	d := HistogramDividers(0, 10, 5)
	require.Len(t, d, 6)
	assert.Equal(t, 0.0, d[0])
	assert.Equal(t, 4.0, d[2])
	assert.Greater(t, d[5], 10.0)
	assert.InDelta(t, 10.0, d[5], 1e-12)
}
