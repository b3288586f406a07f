package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_CarriesPayload(t *testing.T) {
	env, err := NewEnvelope(EventStatsUpdate, map[string]int{"total": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, EventStatsUpdate, env.Event)
	assert.False(t, env.Timestamp.IsZero())
	assert.JSONEq(t, `{"total":3}`, string(env.Data))
}

func TestNewEnvelope_UnmarshalablePayload(t *testing.T) {
	_, err := NewEnvelope(EventNewAlert, make(chan int))
	assert.Error(t, err)
}

func TestDecode_RoundTripsFrame(t *testing.T) {
	env, err := NewEnvelope(EventNewAlert, map[string]string{"id": "a1"})
	require.NoError(t, err)
	frame, err := json.Marshal(env)
	require.NoError(t, err)

	got, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, EventNewAlert, got.Event)
	assert.JSONEq(t, `{"id":"a1"}`, string(got.Data))
}

func TestDecode_RejectsMalformedFrames(t *testing.T) {
	_, err := Decode([]byte("not-json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"id":"x","data":{}}`))
	assert.ErrorContains(t, err, "missing event name")
}
