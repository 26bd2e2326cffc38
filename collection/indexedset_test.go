package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndContains(t *testing.T) {
	s := NewIndexedSet[uint64]()

	require.True(t, s.Add(1))
	require.True(t, s.Add(2))
	require.False(t, s.Add(1), "duplicate add must be rejected")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(1))
	assert.True(t, s.Contains(2))
	assert.False(t, s.Contains(3))
}

func TestRemoveAbsent(t *testing.T) {
	s := NewIndexedSet[string]()
	s.Add("a")

	require.False(t, s.Remove("missing"))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Contains("a"))
}

func TestSwapRemove(t *testing.T) {
	s := NewIndexedSet[string]()
	s.Add("A")
	s.Add("B")
	s.Add("C")

	require.True(t, s.Remove("B"))

	assert.Equal(t, 2, s.Len())
	assert.ElementsMatch(t, []string{"A", "C"}, s.Values())

	// Each remaining member stays independently addressable and removable.
	require.True(t, s.Contains("A"))
	require.True(t, s.Contains("C"))
	require.True(t, s.Remove("C"))
	require.True(t, s.Remove("A"))
	assert.Equal(t, 0, s.Len())
}

func TestRemoveLast(t *testing.T) {
	s := NewIndexedSet[int]()
	s.Add(10)
	s.Add(20)

	require.True(t, s.Remove(20))
	assert.Equal(t, []int{10}, s.Values())
	assert.False(t, s.Contains(20))
}

func TestReverseIndexConsistency(t *testing.T) {
	s := NewIndexedSet[int]()
	for i := 1; i <= 16; i++ {
		s.Add(i)
	}
	for i := 2; i <= 16; i += 2 {
		require.True(t, s.Remove(i))
	}

	require.Equal(t, 8, s.Len())
	for i, v := range s.Items {
		assert.Equal(t, uint32(i+1), s.Index[v], "index entry for %d", v)
	}
	for i := 1; i <= 16; i += 2 {
		assert.True(t, s.Contains(i))
	}
}

func TestValuesIsACopy(t *testing.T) {
	s := NewIndexedSet[int]()
	s.Add(1)
	s.Add(2)

	values := s.Values()
	values[0] = 99

	assert.True(t, s.Contains(1))
	assert.ElementsMatch(t, []int{1, 2}, s.Values())
}

func TestClone(t *testing.T) {
	s := NewIndexedSet[int]()
	s.Add(1)
	s.Add(2)

	c := s.Clone()
	c.Add(3)
	c.Remove(1)

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(1))
	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Contains(1))
	assert.True(t, c.Contains(3))
}

func TestReindex(t *testing.T) {
	s := &IndexedSet[string]{Items: []string{"x", "y", "z"}}
	s.Reindex()

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("y"))
	require.True(t, s.Remove("x"))
	assert.ElementsMatch(t, []string{"y", "z"}, s.Values())
}

func TestZeroValueMember(t *testing.T) {
	// Slot indices are offset by one so the zero value is a valid member.
	s := NewIndexedSet[int]()
	require.True(t, s.Add(0))
	assert.True(t, s.Contains(0))
	require.True(t, s.Remove(0))
	assert.False(t, s.Contains(0))
}
