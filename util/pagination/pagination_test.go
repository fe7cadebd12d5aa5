package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	p := Books.Normalize(0, 0)
	require.Equal(t, Params{Page: 1, Limit: 10}, p)
	require.Equal(t, 0, p.Offset())

	p = Users.Normalize(3, 5000)
	require.Equal(t, Params{Page: 3, Limit: 1000}, p)
	require.Equal(t, 2000, p.Offset())
}

func TestTotalPages(t *testing.T) {
	require.Equal(t, 0, TotalPages(0, 10))
	require.Equal(t, 1, TotalPages(10, 10))
	require.Equal(t, 2, TotalPages(11, 10))
}
