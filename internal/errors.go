package internal

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidURL          = errors.New("invalid YouTube URL")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrDownloadFailed      = errors.New("download failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrNotFound            = errors.New("not found")
	ErrTimeout             = errors.New("timeout")
)

// Wrap tags err with one of the sentinel markers above so callers can classify it
// with errors.Is while keeping the underlying cause.
func Wrap(marker error, operation string, err error) error {
	operation = strings.TrimSpace(operation)
	switch {
	case err == nil && operation == "":
		return marker
	case err == nil:
		return fmt.Errorf("%w: %s", marker, operation)
	case operation == "":
		return fmt.Errorf("%w: %w", marker, err)
	default:
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	}
}

// UserMessage turns an acquisition error into the text shown in the error banner.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return "Invalid YouTube URL. Please try again."
	case errors.Is(err, ErrConfiguration):
		return fmt.Sprintf("The app is not configured correctly: %v", err)
	case errors.Is(err, ErrNotFound):
		return "Failed to retrieve video details."
	case errors.Is(err, ErrDownloadFailed):
		return "Failed to download or process the video."
	case errors.Is(err, ErrTimeout):
		return "Transcription did not finish in time. Please try again later."
	case errors.Is(err, ErrValidation), errors.Is(err, ErrTranscriptionFailed):
		return fmt.Sprintf("Failed to transcribe the video: %v", err)
	default:
		return fmt.Sprintf("Failed to load the video: %v", err)
	}
}
