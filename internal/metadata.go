package internal

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// MetadataAcquirer uses a video's title and description as its content
type MetadataAcquirer struct {
	service *youtube.Service
	logger  *slog.Logger
}

// NewYouTubeService creates a YouTube Data API client authenticated with apiKey.
// Extra options are appended after the key.
func NewYouTubeService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*youtube.Service, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, Wrap(ErrConfiguration, "creating youtube service", err)
	}
	return svc, nil
}

// NewMetadataAcquirer creates a ContentAcquirer backed by the YouTube Data API
func NewMetadataAcquirer(service *youtube.Service, logger *slog.Logger) *MetadataAcquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetadataAcquirer{service: service, logger: logger}
}

// Acquire implements ContentAcquirer
func (m *MetadataAcquirer) Acquire(ctx context.Context, ref VideoReference) (string, error) {
	snippet, err := m.Snippet(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	return FormatSnippet(snippet.Title, snippet.Description), nil
}

// Snippet fetches the snippet part for videoID
func (m *MetadataAcquirer) Snippet(ctx context.Context, videoID string) (*youtube.VideoSnippet, error) {
	resp, err := m.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, Wrap(ErrNotFound, "fetching video "+videoID, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, Wrap(ErrNotFound, "video "+videoID, nil)
	}

	snippet := resp.Items[0].Snippet
	m.logger.Debug("fetched video snippet",
		slog.String("video_id", videoID),
		slog.String("title", snippet.Title),
		slog.String("channel", snippet.ChannelTitle))
	return snippet, nil
}

// FormatSnippet renders title and description as the text questions are answered against
func FormatSnippet(title, description string) string {
	return fmt.Sprintf("Title: %s\n\nDescription: %s", title, description)
}
