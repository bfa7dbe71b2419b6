package party

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaybackApply(t *testing.T) {
	now := time.Now()

	var st PlaybackState
	require.NoError(t, st.apply(1, "u1", Action{Kind: ActionPlay}, now))
	assert.True(t, st.IsPlaying)
	assert.Equal(t, int64(1), st.LastSeq)
	assert.Equal(t, "u1", st.LastActorID)

	require.NoError(t, st.apply(2, "u2", Action{Kind: ActionSeek, Value: 42.5}, now))
	assert.True(t, st.IsPlaying, "seek must not change play/pause state")
	assert.Equal(t, 42.5, st.PositionSeconds)

	require.NoError(t, st.apply(3, "u1", Action{Kind: ActionPause}, now))
	assert.False(t, st.IsPlaying)
	assert.Equal(t, 42.5, st.PositionSeconds, "pause must not move the position")
}

func TestPlaybackSeekClampsNegative(t *testing.T) {
	var st PlaybackState
	require.NoError(t, st.apply(1, "u1", Action{Kind: ActionSeek, Value: -10}, time.Now()))
	assert.Equal(t, float64(0), st.PositionSeconds)
}

func TestPlaybackUnknownActionLeavesStateUntouched(t *testing.T) {
	st := PlaybackState{IsPlaying: true, PositionSeconds: 7, LastSeq: 5, LastActorID: "u1"}
	before := st

	err := st.apply(6, "u2", Action{Kind: "rewind"}, time.Now())
	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, before, st)
}

func TestPlaybackRepeatedSeekBumpsOnlyBookkeeping(t *testing.T) {
	now := time.Now()

	var st PlaybackState
	require.NoError(t, st.apply(1, "u1", Action{Kind: ActionSeek, Value: 30}, now))
	require.NoError(t, st.apply(2, "u2", Action{Kind: ActionSeek, Value: 30}, now))

	assert.Equal(t, int64(2), st.LastSeq)
	assert.Equal(t, "u2", st.LastActorID)
	assert.Equal(t, float64(30), st.PositionSeconds)
	assert.False(t, st.IsPlaying)
}
