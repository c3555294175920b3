package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "run-1", Value: map[string]int{"words": 3}},
		{Key: "run-1", Value: "done"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "run-1", string(msgs[0].Key))
	assert.JSONEq(t, `{"words":3}`, string(msgs[0].Value))
	assert.JSONEq(t, `"done"`, string(msgs[1].Value))
}

func TestEncode_RejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "k", Value: make(chan int)}})
	assert.Error(t, err)
}
