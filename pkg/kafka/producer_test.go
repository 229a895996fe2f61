package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	messages, err := Encode([]Event{
		{Key: "run walk", Value: map[string]int{"results": 2}},
		{Key: "", Value: "plain"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, []byte("run walk"), messages[0].Key)
	assert.JSONEq(t, `{"results":2}`, string(messages[0].Value))
	assert.Equal(t, `"plain"`, string(messages[1].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := Encode([]Event{{Key: "bad", Value: func() {}}})
	assert.Error(t, err)
}
