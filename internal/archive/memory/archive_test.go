package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObject(t *testing.T) {
	t.Parallel()

	a := New()
	uri, err := a.PutObject(context.Background(), "entity-1/fp.html", "text/html", []byte("<html/>"))
	require.NoError(t, err)
	require.Equal(t, "memory://entity-1/fp.html", uri)

	data, ok := a.GetObject("entity-1/fp.html")
	require.True(t, ok)
	require.Equal(t, []byte("<html/>"), data)

	_, ok = a.GetObject("missing")
	require.False(t, ok)
}

func TestPutObject_CopiesData(t *testing.T) {
	t.Parallel()

	a := New()
	data := []byte("original")
	_, err := a.PutObject(context.Background(), "p", "", data)
	require.NoError(t, err)

	data[0] = 'X'
	stored, ok := a.GetObject("p")
	require.True(t, ok)
	require.Equal(t, []byte("original"), stored)
}
