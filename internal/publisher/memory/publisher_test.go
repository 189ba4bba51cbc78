package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRecordsJSONPayloads(t *testing.T) {
	p := New()

	id, err := p.Publish(context.Background(), "harvest-runs", map[string]int{"targets_visited": 3})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	events := p.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "harvest-runs", events[0].Topic)
	assert.JSONEq(t, `{"targets_visited":3}`, string(events[0].Data))
}

func TestPublishFailWith(t *testing.T) {
	p := New()
	p.FailWith(errors.New("broker down"))

	_, err := p.Publish(context.Background(), "harvest-runs", "payload")
	require.Error(t, err)
	assert.Empty(t, p.Events())
}
