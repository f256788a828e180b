package internal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMCPServer(t *testing.T, acq *fakeAcquirer) *MCPServer {
	t.Helper()
	dir := t.TempDir()
	config := &Config{
		Variant:        VariantLocal,
		Quiet:          true,
		CacheDir:       dir,
		TranscriptsDir: dir,
	}
	app, err := NewApp(context.Background(), config, nil, WithAcquirer(acq), WithAnswerer(echoAnswerer{}))
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return NewMCPServer(app, "test")
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestMCPLoadAndAsk(t *testing.T) {
	ctx := context.Background()
	s := newTestMCPServer(t, &fakeAcquirer{})

	result, err := s.handleLoadVideo(ctx, callTool("load_video", map[string]any{"url": "dQw4w9WgXcQ"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), msgContentLoaded)
	assert.Contains(t, resultText(t, result), "dQw4w9WgXcQ")

	result, err = s.handleAskVideo(ctx, callTool("ask_video", map[string]any{"question": "what?"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "About transcript of dQw4w9WgXcQ: what?", resultText(t, result))

	result, err = s.handleGetConversation(ctx, callTool("get_conversation", nil))
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &snap))
	assert.Equal(t, "dQw4w9WgXcQ", snap.VideoID)
	require.Len(t, snap.Exchanges, 1)
	assert.Equal(t, "what?", snap.Exchanges[0].Question)
}

func TestMCPAskBeforeLoad(t *testing.T) {
	s := newTestMCPServer(t, &fakeAcquirer{})

	result, err := s.handleAskVideo(context.Background(), callTool("ask_video", map[string]any{"question": "what?"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "call load_video first")
}

func TestMCPMissingArguments(t *testing.T) {
	ctx := context.Background()
	s := newTestMCPServer(t, &fakeAcquirer{})

	result, err := s.handleLoadVideo(ctx, callTool("load_video", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleAskVideo(ctx, callTool("ask_video", map[string]any{"question": 42}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPLoadFailure(t *testing.T) {
	ctx := context.Background()
	acq := &fakeAcquirer{err: Wrap(ErrDownloadFailed, "yt-dlp", nil)}
	s := newTestMCPServer(t, acq)

	result, err := s.handleLoadVideo(ctx, callTool("load_video", map[string]any{"url": "https://youtu.be/abc"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Failed to download or process the video.", resultText(t, result))

	result, err = s.handleLoadVideo(ctx, callTool("load_video", map[string]any{"url": "not a video"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Invalid YouTube URL. Please try again.", resultText(t, result))
	assert.Equal(t, 1, acq.callCount())
}

func TestMCPMetadataFromCache(t *testing.T) {
	s := newTestMCPServer(t, &fakeAcquirer{})
	meta := &VideoMetadata{
		ID:          "dQw4w9WgXcQ",
		Title:       "Cached title",
		Channel:     "Cached channel",
		Duration:    212,
		Tags:        []string{"music", "80s"},
		HasCaptions: true,
	}
	require.NoError(t, SaveMetadata("dQw4w9WgXcQ", meta, s.app.Config().TranscriptsDir))

	result, err := s.handleGetMetadata(context.Background(), callTool("get_video_metadata", map[string]any{"url": "https://youtu.be/dQw4w9WgXcQ"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Title: Cached title\n")
	assert.Contains(t, text, "Duration: 212 seconds\n")
	assert.Contains(t, text, "Has Captions: true\n")
	assert.Contains(t, text, "Tags: music, 80s\n")
}

func TestMCPRegistersTools(t *testing.T) {
	s := newTestMCPServer(t, &fakeAcquirer{})

	tools := s.GetServer().ListTools()
	for _, name := range []string{"load_video", "ask_video", "get_conversation", "get_video_metadata"} {
		assert.Contains(t, tools, name)
	}
}
