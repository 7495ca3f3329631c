package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solid builds a w*h frame filled with the given RGB value.
func solid(w, h int, r, g, b byte) *Frame {
	data := make([]byte, w*h*3)
	for i := 0; i < len(data); i += 3 {
		data[i] = r
		data[i+1] = g
		data[i+2] = b
	}
	return &Frame{Data: data, Width: w, Height: h}
}

func TestCompareIdenticalFramesNeverDiffer(t *testing.T) {
	f := solid(40, 30, 120, 130, 140)

	for _, threshold := range []float64{0, 0.01, 0.1, 0.5, 1} {
		diff, err := Compare(f, f, threshold)
		require.NoError(t, err)
		assert.False(t, diff, "threshold %v", threshold)
	}
}

func TestCompareDimensionMismatch(t *testing.T) {
	a := solid(40, 30, 0, 0, 0)
	b := solid(30, 40, 0, 0, 0)

	_, err := Compare(a, b, 0.1)
	require.Error(t, err)

	var dim *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dim)
}

func TestCompareThresholdScaling(t *testing.T) {
	// 100x100 = 10000 pixels. threshold 0.1 -> floor(10000*0.1*0.001) = 1
	// pixel allowed; threshold 0.05 -> 0 pixels allowed.
	a := solid(100, 100, 50, 50, 50)
	b := solid(100, 100, 50, 50, 50)

	// One pixel moved well beyond the channel tolerance.
	b.Data[0] = 200

	diff, err := Compare(a, b, 0.1)
	require.NoError(t, err)
	assert.False(t, diff, "one changed pixel fits a budget of one")

	diff, err = Compare(a, b, 0.05)
	require.NoError(t, err)
	assert.True(t, diff, "budget of zero pixels must trip")
}

func TestCompareChannelTolerance(t *testing.T) {
	a := solid(10, 10, 100, 100, 100)
	b := solid(10, 10, 101, 101, 101)

	// Deltas of exactly 1 are within tolerance everywhere.
	diff, err := Compare(a, b, 0)
	require.NoError(t, err)
	assert.False(t, diff)

	c := solid(10, 10, 102, 102, 102)
	diff, err = Compare(a, c, 0)
	require.NoError(t, err)
	assert.True(t, diff)
}

func TestCompareGrayscaleClassificationFlip(t *testing.T) {
	// Channel deltas of 1 stay under the channel tolerance, but the
	// pixel flips from grayscale (100,100,102: pairwise <= 2) to
	// chromatic (101,99,103: r-b spread of 4). The classification rule
	// must catch it.
	a := solid(10, 10, 100, 100, 102)
	b := solid(10, 10, 101, 99, 103)

	assert.False(t, isGrayscale(101, 99, 103))
	assert.True(t, isGrayscale(100, 100, 102))

	diff, err := Compare(a, b, 0)
	require.NoError(t, err)
	assert.True(t, diff)
}

func TestCompareShortCircuits(t *testing.T) {
	// Every pixel differs: the comparator must report different even at
	// the most permissive threshold once the budget is exceeded.
	a := solid(50, 50, 0, 0, 0)
	b := solid(50, 50, 255, 255, 255)

	diff, err := Compare(a, b, 1)
	require.NoError(t, err)
	assert.True(t, diff)
}
