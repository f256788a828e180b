package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/google/uuid"
)

// TranscribeAPI is the part of the AWS Transcribe client we use
type TranscribeAPI interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// PollConfig bounds the wait for a transcription job
type PollConfig struct {
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	Timeout     time.Duration
}

// DefaultPollConfig suits jobs of a few minutes of audio
var DefaultPollConfig = PollConfig{
	InitialWait: 2 * time.Second,
	MaxWait:     30 * time.Second,
	Multiplier:  2.0,
	Timeout:     15 * time.Minute,
}

// JobNamer picks the job name for a video
type JobNamer func(ref VideoReference) string

// DefaultJobNamer names jobs ytchat-<video id>-<random suffix>; job names must be unique per account
func DefaultJobNamer(ref VideoReference) string {
	return fmt.Sprintf("%s-%s-%s", appName, ref.ID, uuid.NewString()[:8])
}

// TranscribeAcquirer gets a transcript from an AWS Transcribe job
type TranscribeAcquirer struct {
	api         TranscribeAPI
	store       *JobStore
	httpClient  *http.Client
	poll        PollConfig
	namer       JobNamer
	mediaBucket string
	stager      MediaStager
	logger      *slog.Logger
}

// TranscribeOption customizes a TranscribeAcquirer
type TranscribeOption func(*TranscribeAcquirer)

// WithJobStore remembers jobs so completed transcripts are reused
func WithJobStore(store *JobStore) TranscribeOption {
	return func(t *TranscribeAcquirer) {
		t.store = store
	}
}

// WithPollConfig overrides the polling backoff and timeout
func WithPollConfig(poll PollConfig) TranscribeOption {
	return func(t *TranscribeAcquirer) {
		t.poll = poll
	}
}

// WithJobNamer overrides how job names are chosen
func WithJobNamer(namer JobNamer) TranscribeOption {
	return func(t *TranscribeAcquirer) {
		if namer != nil {
			t.namer = namer
		}
	}
}

// WithMediaStager uploads a video's audio to the media bucket before its job starts
func WithMediaStager(stager MediaStager) TranscribeOption {
	return func(t *TranscribeAcquirer) {
		t.stager = stager
	}
}

// WithTranscriptHTTPClient overrides the client used to fetch finished transcripts
func WithTranscriptHTTPClient(client *http.Client) TranscribeOption {
	return func(t *TranscribeAcquirer) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// NewTranscribeAcquirer creates a ContentAcquirer backed by AWS Transcribe.
// Jobs read their media from s3://mediaBucket/<id>.mp3.
func NewTranscribeAcquirer(api TranscribeAPI, mediaBucket string, logger *slog.Logger, opts ...TranscribeOption) *TranscribeAcquirer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TranscribeAcquirer{
		api:         api,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		poll:        DefaultPollConfig,
		namer:       DefaultJobNamer,
		mediaBucket: mediaBucket,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MediaURI returns the S3 location the job reads the audio from
func (t *TranscribeAcquirer) MediaURI(ref VideoReference) string {
	return fmt.Sprintf("s3://%s/%s", t.mediaBucket, MediaKey(ref))
}

// MediaKey is the object key a video's audio is stored under
func MediaKey(ref VideoReference) string {
	return ref.ID + ".mp3"
}

// Acquire implements ContentAcquirer
func (t *TranscribeAcquirer) Acquire(ctx context.Context, ref VideoReference) (string, error) {
	if t.mediaBucket == "" {
		return "", Wrap(ErrConfiguration, "aws.media_bucket is required for the transcribe source", nil)
	}
	if !IsSafeVideoID(ref.ID) {
		return "", Wrap(ErrInvalidURL, fmt.Sprintf("video id %q", ref.ID), nil)
	}
	if t.store != nil {
		if job, err := t.store.LatestCompleted(ctx, ref.ID); err == nil {
			t.logger.Debug("reusing transcription job", slog.String("job", job.Name))
			return job.Transcript, nil
		}
	}

	if t.stager != nil {
		if err := t.stager.Stage(ctx, ref, t.mediaBucket, MediaKey(ref)); err != nil {
			return "", err
		}
	}

	return t.TranscribeVideo(ctx, t.MediaURI(ref), t.namer(ref), ref.ID)
}

// TranscribeVideo submits a job called jobName for mediaURI and waits for its transcript
func (t *TranscribeAcquirer) TranscribeVideo(ctx context.Context, mediaURI, jobName, videoID string) (string, error) {
	_, err := t.api.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media:                &types.Media{MediaFileUri: aws.String(mediaURI)},
		MediaFormat:          types.MediaFormatMp3,
		LanguageCode:         types.LanguageCodeEnUs,
	})
	if err != nil {
		return "", Wrap(ErrTranscriptionFailed, "starting job "+jobName, err)
	}
	t.logger.Info("transcription job started", slog.String("job", jobName), slog.String("media", mediaURI))

	if t.store != nil {
		if err := t.store.Create(ctx, TranscriptionJob{Name: jobName, VideoID: videoID, MediaURI: mediaURI}); err != nil {
			t.logger.Warn("recording transcription job", slog.Any("error", err))
		}
	}

	transcript, reason, err := t.waitForJob(ctx, jobName)
	if t.store != nil {
		status := JobCompleted
		if err != nil {
			status = JobFailed
			if reason == "" {
				reason = err.Error()
			}
		}
		// the caller's ctx may already be done; the bookkeeping write should still land
		if ferr := t.store.Finish(context.WithoutCancel(ctx), jobName, status, transcript, reason); ferr != nil {
			t.logger.Warn("updating transcription job", slog.Any("error", ferr))
		}
	}
	return transcript, err
}

// waitForJob polls until the job completes or fails, backing off between polls.
// It gives up with ErrTimeout once the poll timeout passes.
func (t *TranscribeAcquirer) waitForJob(ctx context.Context, jobName string) (string, string, error) {
	pollCtx := ctx
	if t.poll.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, t.poll.Timeout)
		defer cancel()
	}

	wait := t.poll.InitialWait
	for attempt := 1; ; attempt++ {
		out, err := t.api.GetTranscriptionJob(pollCtx, &transcribe.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(jobName),
		})
		if err != nil {
			if timedOut(ctx, pollCtx) {
				return "", "", Wrap(ErrTimeout, "waiting for job "+jobName, err)
			}
			return "", "", Wrap(ErrTranscriptionFailed, "polling job "+jobName, err)
		}

		job := out.TranscriptionJob
		if job == nil {
			return "", "", Wrap(ErrTranscriptionFailed, "job "+jobName+" missing from response", nil)
		}

		switch job.TranscriptionJobStatus {
		case types.TranscriptionJobStatusCompleted:
			if job.Transcript == nil || aws.ToString(job.Transcript.TranscriptFileUri) == "" {
				return "", "", Wrap(ErrTranscriptionFailed, "job "+jobName+" has no transcript location", nil)
			}
			text, err := t.fetchTranscript(ctx, aws.ToString(job.Transcript.TranscriptFileUri))
			if err != nil {
				return "", "", err
			}
			t.logger.Info("transcription job completed", slog.String("job", jobName), slog.Int("polls", attempt))
			return text, "", nil
		case types.TranscriptionJobStatusFailed:
			reason := aws.ToString(job.FailureReason)
			return "", reason, Wrap(ErrTranscriptionFailed, fmt.Sprintf("job %s failed: %s", jobName, reason), nil)
		}

		t.logger.Debug("transcription job pending",
			slog.String("job", jobName),
			slog.String("status", string(job.TranscriptionJobStatus)),
			slog.Duration("wait", wait))

		select {
		case <-time.After(wait):
		case <-pollCtx.Done():
			if timedOut(ctx, pollCtx) {
				return "", "", Wrap(ErrTimeout, "waiting for job "+jobName, pollCtx.Err())
			}
			return "", "", ctx.Err()
		}

		wait = time.Duration(float64(wait) * t.poll.Multiplier)
		if t.poll.MaxWait > 0 && wait > t.poll.MaxWait {
			wait = t.poll.MaxWait
		}
	}
}

// timedOut reports whether pollCtx hit its own deadline rather than the parent being cancelled
func timedOut(parent, pollCtx context.Context) bool {
	return parent.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded)
}

// transcriptDocument is the JSON the service writes when a job completes
type transcriptDocument struct {
	JobName string `json:"jobName"`
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (t *TranscribeAcquirer) fetchTranscript(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", Wrap(ErrTranscriptionFailed, "building transcript request", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", Wrap(ErrTranscriptionFailed, "fetching transcript", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", Wrap(ErrTranscriptionFailed, fmt.Sprintf("fetching transcript: status %d: %s", resp.StatusCode, body), nil)
	}

	var doc transcriptDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", Wrap(ErrTranscriptionFailed, "decoding transcript", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", Wrap(ErrTranscriptionFailed, "transcript document is empty", nil)
	}
	return doc.Results.Transcripts[0].Transcript, nil
}
