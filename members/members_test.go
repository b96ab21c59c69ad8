package members_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/fm-metrics/members"
	"github.com/stretchr/testify/require"
)

func TestHasher(t *testing.T) {
	h := members.NewHasher([]byte("secret"))

	t.Run("stable and hex encoded", func(t *testing.T) {
		a := h.Hash("user-1")
		require.Len(t, a, 64)
		require.Equal(t, a, h.Hash("user-1"))
		require.NotContains(t, a, "user-1")
	})

	t.Run("distinct ids", func(t *testing.T) {
		require.NotEqual(t, h.Hash("user-1"), h.Hash("user-2"))
	})

	t.Run("keyed", func(t *testing.T) {
		other := members.NewHasher([]byte("another-secret"))
		require.NotEqual(t, h.Hash("user-1"), other.Hash("user-1"))
	})

	t.Run("long secrets", func(t *testing.T) {
		long := members.NewHasher([]byte(strings.Repeat("k", 200)))
		require.Len(t, long.Hash("user-1"), 64)
	})
}
