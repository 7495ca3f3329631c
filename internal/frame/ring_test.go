package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stub(id byte) *Frame {
	return &Frame{Data: []byte{id, id, id}, Width: 1, Height: 1}
}

func TestRingOverwritesOldest(t *testing.T) {
	r := NewRing(3)

	a, b, c, d := stub(1), stub(2), stub(3), stub(4)
	r.Push(a)
	r.Push(b)
	r.Push(c)
	r.Push(d)

	recent := r.Recent(3)
	require.Len(t, recent, 3)
	assert.Same(t, d, recent[0])
	assert.Same(t, c, recent[1])
	assert.Same(t, b, recent[2])
	assert.Equal(t, 3, r.Len())
}

func TestRingRecentPadsWithNil(t *testing.T) {
	r := NewRing(3)

	recent := r.Recent(5)
	require.Len(t, recent, 5)
	for _, f := range recent {
		assert.Nil(t, f)
	}

	r.Push(stub(1))
	recent = r.Recent(3)
	assert.NotNil(t, recent[0])
	assert.Nil(t, recent[1])
	assert.Nil(t, recent[2])
}

func TestRingFullAndClear(t *testing.T) {
	r := NewRing(2)
	assert.False(t, r.Full())

	r.Push(stub(1))
	assert.False(t, r.Full())

	r.Push(stub(2))
	assert.True(t, r.Full())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Full())
	assert.Equal(t, 2, r.Cap())
}

func TestRingMinimumCapacity(t *testing.T) {
	// Fewer than two frames can never be compared.
	assert.Equal(t, 2, NewRing(0).Cap())
	assert.Equal(t, 2, NewRing(1).Cap())
	assert.Equal(t, 8, NewRing(8).Cap())
}
