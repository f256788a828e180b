package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Transcriber turns an audio file into plain text
type Transcriber interface {
	Transcribe(ctx context.Context, audioFile string) (string, error)
}

// ValidateAudioFile fails with ErrValidation unless audioFile exists and is non-empty
func ValidateAudioFile(audioFile string) error {
	info, err := os.Stat(audioFile)
	if err != nil {
		return Wrap(ErrValidation, fmt.Sprintf("audio file %s is not valid", audioFile), err)
	}
	if info.IsDir() || info.Size() == 0 {
		return Wrap(ErrValidation, fmt.Sprintf("audio file %s is not valid", audioFile), nil)
	}
	return nil
}

// WhisperCLI runs a locally installed whisper model through its command line tool
type WhisperCLI struct {
	cmdRunner CommandRunner
	binary    string
	model     string
	tempDir   string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewWhisperCLI creates a transcriber that shells out to binary with the given model
func NewWhisperCLI(cmdRunner CommandRunner, binary, model, tempDir string, timeout time.Duration, logger *slog.Logger) *WhisperCLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &WhisperCLI{
		cmdRunner: cmdRunner,
		binary:    binary,
		model:     model,
		tempDir:   tempDir,
		timeout:   timeout,
		logger:    logger,
	}
}

// Transcribe implements Transcriber
func (w *WhisperCLI) Transcribe(ctx context.Context, audioFile string) (string, error) {
	if err := ValidateAudioFile(audioFile); err != nil {
		return "", err
	}
	if err := EnsureDirs(w.tempDir); err != nil {
		return "", fmt.Errorf("creating temp directory: %w", err)
	}

	outDir, err := os.MkdirTemp(w.tempDir, "whisper-")
	if err != nil {
		return "", fmt.Errorf("creating whisper output directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	w.logger.Debug("running whisper", slog.String("file", audioFile), slog.String("model", w.model))
	start := time.Now()

	output, err := w.cmdRunner.Run(ctx, w.binary, audioFile,
		"--model", w.model,
		"--fp16", "False",
		"--output_format", "txt",
		"--output_dir", outDir,
		"--verbose", "False")
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", Wrap(ErrTimeout, "whisper", ctx.Err())
		}
		return "", Wrap(ErrTranscriptionFailed, "whisper", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}

	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	text, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return "", Wrap(ErrTranscriptionFailed, "reading whisper output", err)
	}

	w.logger.Debug("whisper finished", slog.Duration("took", time.Since(start)))
	return strings.TrimSpace(string(text)), nil
}
