package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
)

// App holds the application state and dependencies
type App struct {
	config  *Config
	logger  *slog.Logger
	ui      UIManager
	youtube *YouTube

	acquirer ContentAcquirer
	model    LanguageModel
	answerer Answerer
	answers  *AnswerGenerator
	pipeline *Pipeline

	jobs    *JobStore
	awsConf *aws.Config
}

// AppOption customizes App creation
type AppOption func(*App)

// WithYouTube sets a custom yt-dlp wrapper
func WithYouTube(youtube *YouTube) AppOption {
	return func(a *App) {
		a.youtube = youtube
	}
}

// WithAcquirer replaces the variant's content source
func WithAcquirer(acquirer ContentAcquirer) AppOption {
	return func(a *App) {
		a.acquirer = acquirer
	}
}

// WithLanguageModel replaces the variant's model; prompts and timeouts still apply
func WithLanguageModel(model LanguageModel) AppOption {
	return func(a *App) {
		a.model = model
	}
}

// WithAnswerer replaces answer generation entirely
func WithAnswerer(answerer Answerer) AppOption {
	return func(a *App) {
		a.answerer = answerer
	}
}

// WithUI sets a custom UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// NewApp wires the pipeline for config.Variant. Components not supplied
// through options are built from config.
func NewApp(ctx context.Context, config *Config, logger *slog.Logger, options ...AppOption) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{
		config: config,
		logger: logger,
	}
	for _, option := range options {
		option(app)
	}

	if app.ui == nil {
		app.ui = NewUIManager(config.Quiet)
	}
	if app.youtube == nil {
		app.youtube = NewYouTube(config.CacheDir, logger)
	}

	var reset ResetPolicy
	var err error
	switch config.Variant {
	case VariantLocal:
		reset = ResetAlways
		err = app.wireLocal()
	case VariantAWS:
		reset = ResetOnURLChange
		err = app.wireAWS(ctx)
	default:
		err = Wrap(ErrConfiguration, fmt.Sprintf("unknown variant %q", config.Variant), nil)
	}
	if err != nil {
		app.Close()
		return nil, err
	}

	if app.answerer == nil {
		app.answers = NewAnswerGenerator(app.model, NewPromptManager(config.ConfigDir, config.Prompt), config.AnswerTimeout, logger)
		app.answerer = app.answers
	}

	app.pipeline = &Pipeline{
		Variant:  config.Variant,
		Acquirer: app.acquirer,
		Answerer: app.answerer,
		Reset:    reset,
		Logger:   logger,
	}
	return app, nil
}

func (app *App) wireLocal() error {
	var client *OpenAIClient
	openAI := func() *OpenAIClient {
		if client == nil {
			client = NewOpenAIClient(app.config.OpenAIAPIKey)
		}
		return client
	}

	if app.acquirer == nil {
		cmdRunner := &DefaultCommandRunner{}

		var transcriber Transcriber
		switch app.config.Transcriber {
		case TranscriberOpenAI:
			audio := NewAudio(cmdRunner, app.config.TempDir, app.logger)
			transcriber = NewWhisperAPI(openAI(), audio, WhisperLimit, app.logger)
		default:
			transcriber = NewWhisperCLI(cmdRunner, app.config.WhisperBinary, app.config.WhisperModel,
				app.config.TempDir, app.config.WhisperTimeout, app.logger)
		}

		app.acquirer = NewLocalAcquirer(app.youtube, transcriber, app.logger,
			WithTranscriptCache(app.config.TranscriptsDir),
			WithCaptions(app.config.PreferCaptions))
	}

	if app.model == nil && app.answerer == nil {
		app.model = NewOpenAIModel(openAI(), app.config.ChatModel)
	}
	return nil
}

func (app *App) wireAWS(ctx context.Context) error {
	if app.acquirer == nil {
		switch app.config.AWS.Source {
		case SourceTranscribe:
			cfg, err := app.awsConfig(ctx)
			if err != nil {
				return err
			}
			jobs, err := OpenJobStore(app.config.JobsDB)
			if err != nil {
				return Wrap(ErrConfiguration, "opening job registry", err)
			}
			app.jobs = jobs
			stager := NewS3Stager(s3.NewFromConfig(cfg), app.youtube, app.logger)
			app.acquirer = NewTranscribeAcquirer(transcribe.NewFromConfig(cfg), app.config.AWS.MediaBucket, app.logger,
				WithJobStore(jobs),
				WithMediaStager(stager),
				WithPollConfig(PollConfig{
					InitialWait: app.config.AWS.PollInitial,
					MaxWait:     app.config.AWS.PollMax,
					Multiplier:  DefaultPollConfig.Multiplier,
					Timeout:     app.config.AWS.TranscribeTimeout,
				}))
		default:
			svc, err := NewYouTubeService(ctx, app.config.YouTubeAPIKey)
			if err != nil {
				return err
			}
			app.acquirer = NewMetadataAcquirer(svc, app.logger)
		}
	}

	if app.model == nil && app.answerer == nil {
		cfg, err := app.awsConfig(ctx)
		if err != nil {
			return err
		}
		client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
			if app.config.AWS.BedrockRegion != "" {
				o.Region = app.config.AWS.BedrockRegion
			}
		})
		app.model = NewBedrockModel(client, app.config.AWS.BedrockModel)
	}
	return nil
}

// awsConfig loads the shared AWS configuration once. Static keys from config
// win over the SDK's default chain unless use_default_credentials is set.
func (app *App) awsConfig(ctx context.Context) (aws.Config, error) {
	if app.awsConf != nil {
		return *app.awsConf, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(app.config.AWS.Region),
	}
	if !app.config.AWS.UseDefaultCredentials {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(app.config.AWS.AccessKeyID, app.config.AWS.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, Wrap(ErrConfiguration, "loading aws config", err)
	}
	app.awsConf = &cfg
	return cfg, nil
}

// Close releases resources held by the app
func (app *App) Close() error {
	if app.jobs != nil {
		err := app.jobs.Close()
		app.jobs = nil
		return err
	}
	return nil
}

// Config returns the app configuration
func (app *App) Config() *Config {
	return app.config
}

// Logger returns the app logger
func (app *App) Logger() *slog.Logger {
	return app.logger
}

// UI returns the terminal UI manager
func (app *App) UI() UIManager {
	return app.ui
}

// Pipeline returns the content and answer sources for the configured variant
func (app *App) Pipeline() *Pipeline {
	return app.pipeline
}

// SetPromptManager sets a new prompt manager
func (app *App) SetPromptManager(pm *PromptManager) {
	if app.answers != nil {
		app.answers.SetPromptManager(pm)
	}
}

// Content resolves rawURL and acquires its text through the variant's acquirer
func (app *App) Content(ctx context.Context, rawURL string) (VideoReference, string, error) {
	return app.ContentWithStatus(ctx, rawURL, false)
}

// ContentWithStatus acquires content with an optional status spinner
func (app *App) ContentWithStatus(ctx context.Context, rawURL string, showStatus bool) (VideoReference, string, error) {
	ref, err := ResolveVideo(rawURL)
	if err != nil {
		return VideoReference{}, "", err
	}

	if showStatus {
		spinner := app.ui.NewSpinner("Loading video...")
		defer spinner.Finish()
		ctx = WithStatus(ctx, spinner)
	}

	content, err := app.acquirer.Acquire(ctx, ref)
	if err != nil {
		return ref, "", err
	}
	return ref, content, nil
}

// Ask loads rawURL into a throwaway session and asks a single question
func (app *App) Ask(ctx context.Context, rawURL, question string) (Exchange, error) {
	showStatus := !app.config.Quiet
	session := NewSession("cli", app.pipeline)

	var spinner ProgressBar = SilentProgressBar{}
	if showStatus {
		spinner = app.ui.NewSpinner("Loading video...")
	}
	snap := session.Load(WithStatus(ctx, spinner), rawURL)
	if snap.State != StateReady {
		spinner.Finish()
		return Exchange{}, errors.New(snap.Banner.Text)
	}

	spinner.Describe("Thinking...")
	spinner.Advance()
	ex, ok := session.Ask(ctx, question)
	spinner.Finish()
	if !ok {
		return Exchange{}, Wrap(ErrValidation, "question is empty", nil)
	}
	return ex, nil
}

// Metadata gets yt-dlp metadata (cached or fresh)
func (app *App) Metadata(ctx context.Context, rawURL string) (*VideoMetadata, error) {
	return app.MetadataWithStatus(ctx, rawURL, false)
}

// MetadataWithStatus gets metadata with optional status spinner
func (app *App) MetadataWithStatus(ctx context.Context, rawURL string, showStatus bool) (*VideoMetadata, error) {
	if showStatus {
		spinner := app.ui.NewSpinner("Fetching video metadata...")
		defer spinner.Finish()
		ctx = WithStatus(ctx, spinner)
	}
	return CachedMetadata(ctx, app.youtube, app.config.TranscriptsDir, rawURL, app.logger)
}
