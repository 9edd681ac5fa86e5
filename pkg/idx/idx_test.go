package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndOrdered(t *testing.T) {
	a := New()
	b := New()
	require.NotEqual(t, a, b)
	require.LessOrEqual(t, a.String(), b.String(), "monotonic source keeps IDs ordered")
}

func TestParse(t *testing.T) {
	id := New()

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = Parse("")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Parse("not-a-ulid")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}

func TestZero(t *testing.T) {
	require.True(t, Zero.IsZero())
	require.False(t, New().IsZero())
	require.True(t, Zero.Time().IsZero())
}
