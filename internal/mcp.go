package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer exposes a conversation as MCP tools. All tool calls share one
// session, the same way a single browser tab does.
type MCPServer struct {
	app       *App
	session   *Session
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		appName+"-server",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		session:   NewSession("mcp", app.Pipeline()),
		logger:    app.Logger(),
		mcpServer: mcpServer,
	}
	s.registerTools()
	return s
}

func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("load_video",
		mcp.WithDescription("Load a YouTube video so questions can be asked about it. Loading a different video clears the previous conversation. Transcription can take several minutes."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or 11 character video ID"),
			mcp.Required(),
		),
	), s.handleLoadVideo)

	s.mcpServer.AddTool(mcp.NewTool("ask_video",
		mcp.WithDescription("Ask a question about the loaded video. Each question is answered on its own; earlier questions are not remembered by the model."),
		mcp.WithString("question",
			mcp.Description("The question to answer from the video's content"),
			mcp.Required(),
		),
	), s.handleAskVideo)

	s.mcpServer.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Return the loaded video and every question and answer so far, oldest first, as JSON."),
	), s.handleGetConversation)

	s.mcpServer.AddTool(mcp.NewTool("get_video_metadata",
		mcp.WithDescription("Fetch title, channel, duration, description and caption availability for a YouTube video without loading it."),
		mcp.WithString("url",
			mcp.Description("YouTube video URL or 11 character video ID"),
			mcp.Required(),
		),
	), s.handleGetMetadata)
}

func (s *MCPServer) handleLoadVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arg, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}
	url, _ := ParseArg(arg)

	s.logger.Info("mcp load_video", slog.String("url", url))
	snap := s.session.Load(ctx, url)
	if snap.Banner.Kind == BannerError || snap.State != StateReady {
		return mcp.NewToolResultError(snap.Banner.Text), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s (%d characters of content for %s)", snap.Banner.Text, len(snap.Content), snap.VideoID)), nil
}

func (s *MCPServer) handleAskVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required and must be a string"), nil
	}

	ex, ok := s.session.Ask(ctx, question)
	if !ok {
		if strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question must not be empty"), nil
		}
		return mcp.NewToolResultError("no video loaded - call load_video first"), nil
	}
	return mcp.NewToolResultText(ex.Answer), nil
}

func (s *MCPServer) handleGetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.session.Snapshot(), "", "  ")
	if err != nil {
		return mcp.NewToolResultErrorFromErr("encoding conversation", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *MCPServer) handleGetMetadata(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arg, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a string"), nil
	}
	url, _ := ParseArg(arg)

	metadata, err := s.app.Metadata(ctx, url)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("metadata error", err), nil
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Title: %s\n", metadata.Title)
	fmt.Fprintf(&buf, "Channel: %s\n", metadata.Channel)
	fmt.Fprintf(&buf, "Duration: %.0f seconds\n", metadata.Duration)
	fmt.Fprintf(&buf, "Description: %s\n", metadata.Description)
	fmt.Fprintf(&buf, "Has Captions: %t\n", metadata.HasCaptions)
	if len(metadata.Tags) > 0 {
		fmt.Fprintf(&buf, "Tags: %s\n", strings.Join(metadata.Tags, ", "))
	}
	for _, ch := range metadata.Chapters {
		fmt.Fprintf(&buf, "Chapter (%.0f-%.0f): %s\n", ch.StartTime, ch.EndTime, ch.Title)
	}

	return mcp.NewToolResultText(buf.String()), nil
}

// Start serves MCP over stdio or, when transport is "http", on port
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport != "http" {
		return server.ServeStdio(s.mcpServer)
	}

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.WithoutCancel(ctx))
	}
}

// GetServer returns the underlying MCP server for advanced configuration
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.mcpServer
}
