package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MediaStager makes sure a video's audio is in the media bucket before a
// transcription job reads it
type MediaStager interface {
	Stage(ctx context.Context, ref VideoReference, bucket, key string) error
}

// S3API is the part of the S3 client we use
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Stager downloads a video's audio with yt-dlp and uploads it to S3 when
// the bucket does not have it yet
type S3Stager struct {
	api    S3API
	source VideoSource
	logger *slog.Logger
}

// NewS3Stager creates a MediaStager uploading audio from source
func NewS3Stager(api S3API, source VideoSource, logger *slog.Logger) *S3Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Stager{api: api, source: source, logger: logger}
}

// Stage implements MediaStager
func (s *S3Stager) Stage(ctx context.Context, ref VideoReference, bucket, key string) error {
	uri := fmt.Sprintf("s3://%s/%s", bucket, key)
	log := s.logger.With(slog.String("video_id", ref.ID), slog.String("media", uri))

	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		log.Debug("media already staged")
		return nil
	}
	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return Wrap(ErrTranscriptionFailed, "checking "+uri, err)
	}

	reportStatus(ctx, "Downloading audio...")
	audioFile, err := s.source.Audio(ctx, ref)
	if err != nil {
		return err
	}
	defer cleanupFiles(audioFile)

	if err := ValidateAudioFile(audioFile); err != nil {
		return Wrap(ErrDownloadFailed, "audio for "+ref.ID, err)
	}

	f, err := os.Open(audioFile)
	if err != nil {
		return fmt.Errorf("opening audio: %w", err)
	}
	defer f.Close()

	reportStatus(ctx, "Uploading audio...")
	if _, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("audio/mpeg"),
	}); err != nil {
		return Wrap(ErrTranscriptionFailed, "uploading "+uri, err)
	}
	log.Info("media staged")
	return nil
}
