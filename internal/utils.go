package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// EnsureDirs creates directories if needed
func EnsureDirs(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" || FileExists(dir) {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// cleanupFiles removes temporary files
func cleanupFiles(files ...string) {
	for _, file := range files {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove file %s: %v\n", file, err)
		}
	}
}

// CleanupTempDir purges files from a temporary directory
func CleanupTempDir(tempDir string) error {
	if _, err := os.Stat(tempDir); os.IsNotExist(err) {
		return nil
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return fmt.Errorf("reading temp directory: %w", err)
	}

	for _, entry := range entries {
		path := filepath.Join(tempDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to remove temporary file %s: %v\n", path, err)
		}
	}

	// the directory may be in use by another process; leaving it is harmless
	_ = os.Remove(tempDir)
	return nil
}

// videoFile names the cache file for videoID. IDs outside the YouTube
// alphabet could point outside dir and are refused.
func videoFile(dir, videoID, suffix string) (string, error) {
	if !IsSafeVideoID(videoID) {
		return "", Wrap(ErrValidation, fmt.Sprintf("video id %q", videoID), nil)
	}
	return filepath.Join(dir, videoID+suffix), nil
}

// SaveTranscript saves a transcript to the transcripts directory
func SaveTranscript(videoID, transcript, transcriptsDir string) error {
	path, err := videoFile(transcriptsDir, videoID, ".txt")
	if err != nil {
		return err
	}
	if err := EnsureDirs(transcriptsDir); err != nil {
		return fmt.Errorf("creating transcripts directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(transcript), 0644); err != nil {
		return fmt.Errorf("saving transcript: %w", err)
	}
	return nil
}

// LoadTranscript returns a previously saved transcript, or ErrNotFound.
func LoadTranscript(videoID, transcriptsDir string) (string, error) {
	path, err := videoFile(transcriptsDir, videoID, ".txt")
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", Wrap(ErrNotFound, "transcript "+videoID, nil)
	}
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}
	return string(data), nil
}

// cachedVideoMetadata is VideoMetadata plus the time it was written
type cachedVideoMetadata struct {
	VideoMetadata
	CachedAt time.Time `json:"cached_at"`
}

// SaveMetadata saves video metadata to cache as JSON
func SaveMetadata(videoID string, metadata *VideoMetadata, transcriptsDir string) error {
	path, err := videoFile(transcriptsDir, videoID, ".meta.json")
	if err != nil {
		return err
	}
	if err := EnsureDirs(transcriptsDir); err != nil {
		return fmt.Errorf("creating transcripts directory: %w", err)
	}
	data, err := json.MarshalIndent(cachedVideoMetadata{VideoMetadata: *metadata, CachedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}
	return nil
}

// LoadCachedMetadata loads video metadata from cache
func LoadCachedMetadata(videoID, transcriptsDir string) (*VideoMetadata, error) {
	path, err := videoFile(transcriptsDir, videoID, ".meta.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, Wrap(ErrNotFound, "metadata cache "+videoID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("reading metadata cache: %w", err)
	}

	var cached cachedVideoMetadata
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("parsing metadata cache: %w", err)
	}
	return &cached.VideoMetadata, nil
}
