package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lrstanley/go-ytdlp"
)

// VideoMetadata contains YouTube video information
type VideoMetadata struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Channel     string         `json:"channel"`
	Uploader    string         `json:"uploader"`
	Duration    float64        `json:"duration"`
	Categories  []string       `json:"categories"`
	Tags        []string       `json:"tags"`
	Chapters    []VideoChapter `json:"chapters"`
	HasCaptions bool           `json:"has_captions"`
}

// VideoChapter represents a video chapter marker
type VideoChapter struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Title     string  `json:"title"`
}

// YouTube downloads audio, captions and metadata through yt-dlp
type YouTube struct {
	cacheDir string
	logger   *slog.Logger

	installOnce sync.Once
	installErr  error
}

// NewYouTube creates a yt-dlp backed downloader writing into cacheDir
func NewYouTube(cacheDir string, logger *slog.Logger) *YouTube {
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTube{cacheDir: cacheDir, logger: logger}
}

// ensureInstalled makes sure a yt-dlp binary is available, fetching one on first use
func (yt *YouTube) ensureInstalled(ctx context.Context) error {
	yt.installOnce.Do(func() {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			yt.installErr = Wrap(ErrConfiguration, "installing yt-dlp", err)
		}
	})
	return yt.installErr
}

// Metadata fetches video details
func (yt *YouTube) Metadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return nil, err
	}
	yt.logger.Debug("extracting video metadata", slog.String("url", videoURL))

	dl := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		SkipDownload()

	result, err := dl.Run(ctx, videoURL)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		yt.logger.Debug("metadata extraction failed", slog.Any("error", err), slog.String("stderr", stderr))
		return nil, Wrap(ErrDownloadFailed, "extracting video metadata", err)
	}

	var rawData map[string]any
	if err := json.Unmarshal([]byte(result.Stdout), &rawData); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}

	var metadata VideoMetadata
	if err := json.Unmarshal([]byte(result.Stdout), &metadata); err != nil {
		return nil, fmt.Errorf("parsing video metadata: %w", err)
	}
	metadata.HasCaptions = extractSubtitleInfo(rawData)

	yt.logger.Debug("metadata extracted",
		slog.String("title", metadata.Title),
		slog.String("channel", metadata.Channel),
		slog.Float64("duration", metadata.Duration))

	return &metadata, nil
}

// Audio downloads the best available audio for ref and transcodes it to mp3.
// It returns the path of the resulting file.
func (yt *YouTube) Audio(ctx context.Context, ref VideoReference) (string, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return "", err
	}
	if err := EnsureDirs(yt.cacheDir); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	audioFile, err := videoFile(yt.cacheDir, ref.ID, ".mp3")
	if err != nil {
		return "", err
	}

	yt.logger.Debug("downloading audio", slog.String("video_id", ref.ID))

	// name the output after ref.ID so the returned path is the file yt-dlp wrote
	dl := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality("192K").
		NoPlaylist().
		Output(filepath.Join(yt.cacheDir, ref.ID+".%(ext)s"))

	result, err := dl.Run(ctx, ref.URL)
	if err != nil {
		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		return "", Wrap(ErrDownloadFailed, "yt-dlp audio "+ref.ID, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr)))
	}

	return audioFile, nil
}

// Captions fetches uploaded or automatic English captions and returns them as plain text
func (yt *YouTube) Captions(ctx context.Context, ref VideoReference) (string, error) {
	if err := yt.ensureInstalled(ctx); err != nil {
		return "", err
	}
	if !IsSafeVideoID(ref.ID) {
		return "", Wrap(ErrValidation, fmt.Sprintf("video id %q", ref.ID), nil)
	}
	if err := EnsureDirs(yt.cacheDir); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}

	dl := ytdlp.New().
		WriteSubs().
		WriteAutoSubs().
		SubLangs("en").
		ConvertSubs("srt").
		SkipDownload().
		NoPlaylist().
		Output(filepath.Join(yt.cacheDir, ref.ID))

	if _, err := dl.Run(ctx, ref.URL); err != nil {
		return "", Wrap(ErrDownloadFailed, "yt-dlp captions "+ref.ID, err)
	}

	files, err := filepath.Glob(filepath.Join(yt.cacheDir, ref.ID+"*.srt"))
	if err != nil || len(files) == 0 {
		return "", Wrap(ErrNotFound, "captions for "+ref.ID, nil)
	}
	defer cleanupFiles(files...)

	content, err := os.ReadFile(files[0])
	if err != nil {
		return "", fmt.Errorf("reading SRT file: %w", err)
	}

	return strings.TrimSpace(strings.Join(removeDuplicates(parseSRT(string(content))), "\n")), nil
}

// parseSRT extracts text content from SRT format
func parseSRT(content string) []string {
	var lines []string

	content = strings.ReplaceAll(content, "\r\n", "\n")
	for block := range strings.SplitSeq(content, "\n\n") {
		blockLines := strings.Split(strings.TrimSpace(block), "\n")
		// sequence number and timestamp come first
		for i := 2; i < len(blockLines); i++ {
			if line := strings.TrimSpace(blockLines[i]); line != "" {
				lines = append(lines, line)
			}
		}
	}

	return lines
}

// removeDuplicates drops lines that repeat or overlap the previous one, which
// auto-generated captions do constantly
func removeDuplicates(lines []string) []string {
	result := make([]string, 0, len(lines))
	prevLine := ""

	for _, line := range lines {
		isDuplicate := prevLine != "" && (strings.Contains(line, prevLine) || strings.Contains(prevLine, line))
		if !isDuplicate {
			result = append(result, line)
		}
		prevLine = line
	}

	return result
}

// extractSubtitleInfo reports whether yt-dlp found manual or automatic captions
func extractSubtitleInfo(rawData map[string]any) bool {
	for _, key := range []string{"subtitles", "automatic_captions"} {
		if subs, ok := rawData[key].(map[string]any); ok && len(subs) > 0 {
			return true
		}
	}
	return false
}

// CachedMetadata returns metadata for rawURL from the cache in dir, fetching
// and caching it through yt when missing
func CachedMetadata(ctx context.Context, yt *YouTube, dir, rawURL string, logger *slog.Logger) (*VideoMetadata, error) {
	ref, err := ResolveVideo(rawURL)
	if err != nil {
		return nil, err
	}

	if cached, err := LoadCachedMetadata(ref.ID, dir); err == nil {
		logger.Debug("using cached metadata", slog.String("video_id", ref.ID))
		return cached, nil
	}

	reportStatus(ctx, "Fetching video metadata from YouTube...")
	metadata, err := yt.Metadata(ctx, ref.URL)
	if err != nil {
		return nil, err
	}

	if err := SaveMetadata(ref.ID, metadata, dir); err != nil {
		logger.Warn("caching metadata", slog.Any("error", err))
	}
	return metadata, nil
}
