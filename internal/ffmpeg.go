package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Audio cuts audio files with ffprobe/ffmpeg so each piece fits an upload limit
type Audio struct {
	cmdRunner CommandRunner
	tempDir   string
	logger    *slog.Logger
}

// AudioChunks are the pieces of one split file, in playback order
type AudioChunks struct {
	Dir   string
	Files []string
}

// Remove deletes the chunks and their directory
func (c *AudioChunks) Remove() error {
	if c == nil || c.Dir == "" {
		return nil
	}
	return os.RemoveAll(c.Dir)
}

// NewAudio creates an audio splitter writing chunks under tempDir
func NewAudio(cmdRunner CommandRunner, tempDir string, logger *slog.Logger) *Audio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Audio{
		cmdRunner: cmdRunner,
		tempDir:   tempDir,
		logger:    logger,
	}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the length of audioFile in seconds
func (a *Audio) Duration(ctx context.Context, audioFile string) (float64, error) {
	output, err := a.cmdRunner.Run(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		audioFile)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", audioFile, err, strings.TrimSpace(string(output)))
	}

	var probe probeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", probe.Format.Duration, err)
	}
	return duration, nil
}

// Split cuts audioFile into numChunks segments of about equal length using
// ffmpeg's segment muxer. Streams are copied, not re-encoded.
func (a *Audio) Split(ctx context.Context, audioFile string, numChunks int) (*AudioChunks, error) {
	if numChunks < 1 {
		return nil, Wrap(ErrValidation, fmt.Sprintf("cannot split into %d chunks", numChunks), nil)
	}
	if err := EnsureDirs(a.tempDir); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}

	duration, err := a.Duration(ctx, audioFile)
	if err != nil {
		return nil, err
	}
	segment := int(math.Ceil(duration / float64(numChunks)))
	if segment < 1 {
		segment = 1
	}

	dir, err := os.MkdirTemp(a.tempDir, "chunks-")
	if err != nil {
		return nil, fmt.Errorf("creating chunk directory: %w", err)
	}
	chunks := &AudioChunks{Dir: dir}

	a.logger.Debug("splitting audio",
		slog.String("file", audioFile),
		slog.Int("chunks", numChunks),
		slog.Int("segment_seconds", segment))

	output, err := a.cmdRunner.Run(ctx, "ffmpeg",
		"-v", "error",
		"-i", audioFile,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segment),
		"-reset_timestamps", "1",
		"-c", "copy",
		"-y", filepath.Join(dir, "chunk_%03d"+filepath.Ext(audioFile)))
	if err != nil {
		chunks.Remove()
		return nil, fmt.Errorf("ffmpeg segment: %w: %s", err, strings.TrimSpace(string(output)))
	}

	files, err := filepath.Glob(filepath.Join(dir, "chunk_*"))
	if err != nil || len(files) == 0 {
		chunks.Remove()
		return nil, fmt.Errorf("ffmpeg wrote no chunks for %s", audioFile)
	}
	slices.Sort(files)
	chunks.Files = files
	return chunks, nil
}
