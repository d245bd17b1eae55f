package idx

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("generates valid ulids", func(t *testing.T) {
		id := New()
		require.Len(t, id.String(), 26)
		_, err := Parse(id.String())
		require.NoError(t, err)
	})

	t.Run("ids are unique and ordered within a run", func(t *testing.T) {
		ids := make([]string, 100)
		for i := range ids {
			ids[i] = New().String()
		}

		seen := map[string]bool{}
		for _, id := range ids {
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}

		require.True(t, sort.StringsAreSorted(ids), "ids should be lexicographically ordered")
	})
}

func TestNewAt(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)
	require.Equal(t, at.Truncate(time.Millisecond), id.Time())
}

func TestParse(t *testing.T) {
	t.Run("round trips generated ids", func(t *testing.T) {
		id := New()
		parsed, err := Parse(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		for _, bad := range []string{"", "   ", "not-a-ulid", "0123456789012345678901234!"} {
			_, err := Parse(bad)
			require.ErrorIs(t, err, ErrInvalid, "input %q", bad)
		}
	})
}

func TestIsZero(t *testing.T) {
	require.True(t, Zero.IsZero())
	require.False(t, New().IsZero())
}
