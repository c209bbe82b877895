package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The remote tier filters SCAN results through the shared glob dialect
// before acting on them, so Redis MATCH metacharacters that dialect does
// not know must behave as literals end to end.
func TestMatchLocally(t *testing.T) {
	t.Parallel()

	t.Run("brackets are literal, not character classes", func(t *testing.T) {
		t.Parallel()

		require.True(t, matchLocally("v1:airports?iata=[LAX]", "v1:airports?iata=[LAX]"))
		require.False(t, matchLocally("v1:airports?iata=L", "v1:airports?iata=[LAX]"))
		require.False(t, matchLocally("v1:airports?iata=A", "v1:airports?iata=[LAX]"))
	})

	t.Run("empty pattern matches everything", func(t *testing.T) {
		t.Parallel()

		require.True(t, matchLocally("v1:airports?iata=LAX", ""))
	})

	t.Run("star and question glob", func(t *testing.T) {
		t.Parallel()

		require.True(t, matchLocally("v1:airports?iata=LAX", "v1:airports*"))
		require.True(t, matchLocally("v1:airports?iata=LAX", "v1:airports?iata=?AX"))
		require.False(t, matchLocally("v1:weather?station=KLAX", "v1:airports*"))
	})
}
