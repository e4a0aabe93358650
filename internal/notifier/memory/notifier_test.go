package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	n := New()
	id, err := n.Publish(context.Background(), "changes", map[string]any{"entity_id": "e-1"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = n.Publish(context.Background(), "changes", map[string]any{"entity_id": "e-2"})
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	msgs := n.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "changes", msgs[0].Topic)
	require.Equal(t, map[string]any{"entity_id": "e-1"}, msgs[0].Payload)
}
