package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationAppendKeepsOrder(t *testing.T) {
	c := NewConversation()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	c.Append("first?", "one")
	c.Append("second?", "two")
	c.Append("third?", "three")

	got := c.Exchanges()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"first?", "second?", "third?"}, []string{got[0].Question, got[1].Question, got[2].Question})
	assert.True(t, got[0].AskedAt.Before(got[2].AskedAt))
}

func TestConversationExchangesIsCopy(t *testing.T) {
	c := NewConversation()
	c.Append("q", "a")

	got := c.Exchanges()
	got[0].Answer = "changed"

	assert.Equal(t, "a", c.Exchanges()[0].Answer)
}

func TestConversationReset(t *testing.T) {
	c := NewConversation()
	c.URL = "https://www.youtube.com/watch?v=abc"
	c.VideoID = "abc"
	c.Content = "text"
	c.State = StateReady
	c.Banner = Banner{Kind: BannerSuccess, Text: "ok"}
	c.Append("q", "a")

	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.False(t, c.HasContent())
	assert.Equal(t, StateIdle, c.State)
	assert.Equal(t, Banner{}, c.Banner)
	assert.Empty(t, c.URL)
}

func TestSnapshotJSON(t *testing.T) {
	c := NewConversation()
	c.Content = "secret transcript"
	c.State = StateReady

	data, err := json.Marshal(c.Snapshot())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ready", decoded["state"])
	assert.Equal(t, true, decoded["has_content"])
	assert.Equal(t, []any{}, decoded["exchanges"])
	assert.NotContains(t, string(data), "secret transcript")
}
