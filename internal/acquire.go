package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// VideoSource downloads what a video offers: its audio track and its captions
type VideoSource interface {
	Audio(ctx context.Context, ref VideoReference) (string, error)
	Captions(ctx context.Context, ref VideoReference) (string, error)
}

// LocalAcquirer produces a transcript by downloading a video's audio and
// running it through a Transcriber. Transcripts are cached on disk by video id.
type LocalAcquirer struct {
	source         VideoSource
	transcriber    Transcriber
	transcriptsDir string
	preferCaptions bool
	keepAudio      bool
	logger         *slog.Logger
}

// LocalOption customizes a LocalAcquirer
type LocalOption func(*LocalAcquirer)

// WithTranscriptCache reads and writes transcripts under dir
func WithTranscriptCache(dir string) LocalOption {
	return func(a *LocalAcquirer) {
		a.transcriptsDir = dir
	}
}

// WithCaptions tries the video's captions before transcribing audio
func WithCaptions(prefer bool) LocalOption {
	return func(a *LocalAcquirer) {
		a.preferCaptions = prefer
	}
}

// WithKeepAudio leaves downloaded audio in place after transcription
func WithKeepAudio(keep bool) LocalOption {
	return func(a *LocalAcquirer) {
		a.keepAudio = keep
	}
}

// NewLocalAcquirer creates a ContentAcquirer that transcribes audio itself
func NewLocalAcquirer(source VideoSource, transcriber Transcriber, logger *slog.Logger, opts ...LocalOption) *LocalAcquirer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &LocalAcquirer{
		source:      source,
		transcriber: transcriber,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire implements ContentAcquirer
func (a *LocalAcquirer) Acquire(ctx context.Context, ref VideoReference) (string, error) {
	if !IsSafeVideoID(ref.ID) {
		return "", Wrap(ErrInvalidURL, fmt.Sprintf("video id %q", ref.ID), nil)
	}
	log := a.logger.With(slog.String("video_id", ref.ID))

	if a.transcriptsDir != "" {
		if text, err := LoadTranscript(ref.ID, a.transcriptsDir); err == nil {
			log.Debug("using cached transcript")
			reportStatus(ctx, "Found cached transcript")
			return text, nil
		}
	}

	if a.preferCaptions {
		reportStatus(ctx, "Fetching YouTube captions...")
		text, err := a.source.Captions(ctx, ref)
		switch {
		case err == nil && text != "":
			a.save(log, ref.ID, text)
			return text, nil
		case errors.Is(err, context.Canceled):
			return "", err
		default:
			log.Info("captions unavailable, transcribing audio", slog.Any("error", err))
		}
	}

	reportStatus(ctx, "Downloading audio...")
	audioFile, err := a.source.Audio(ctx, ref)
	if err != nil {
		return "", err
	}
	if !a.keepAudio {
		defer cleanupFiles(audioFile)
	}

	if err := ValidateAudioFile(audioFile); err != nil {
		return "", Wrap(ErrDownloadFailed, "audio for "+ref.ID, err)
	}

	reportStatus(ctx, "Transcribing audio...")
	text, err := a.transcriber.Transcribe(ctx, audioFile)
	if err != nil {
		return "", err
	}

	a.save(log, ref.ID, text)
	return text, nil
}

func (a *LocalAcquirer) save(log *slog.Logger, videoID, text string) {
	if a.transcriptsDir == "" {
		return
	}
	if err := SaveTranscript(videoID, text, a.transcriptsDir); err != nil {
		log.Warn("caching transcript", slog.Any("error", err))
	}
}
