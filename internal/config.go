package internal

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const appName = "ytchat"

// Supported variants
const (
	VariantLocal = "local"
	VariantAWS   = "aws"
)

// Content sources for the aws variant
const (
	SourceMetadata   = "metadata"
	SourceTranscribe = "transcribe"
)

// Transcription backends for the local variant
const (
	TranscriberLocal  = "local"
	TranscriberOpenAI = "openai"
)

// CommandRunner executes external commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultCommandRunner implements CommandRunner
type DefaultCommandRunner struct{}

func (r *DefaultCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// AWSConfig holds settings for the aws variant
type AWSConfig struct {
	Source                string
	Region                string
	AccessKeyID           string
	SecretAccessKey       string
	UseDefaultCredentials bool
	BedrockRegion         string
	BedrockModel          string
	MediaBucket           string
	TranscribeTimeout     time.Duration
	PollInitial           time.Duration
	PollMax               time.Duration
}

// Config holds application settings
type Config struct {
	// User configurable settings
	Variant        string
	ChatModel      string
	AnswerTimeout  time.Duration
	Transcriber    string
	WhisperBinary  string
	WhisperModel   string
	WhisperTimeout time.Duration
	PreferCaptions bool
	Prompt         string
	Addr           string
	TranscriptsDir string
	Verbose        bool
	Quiet          bool
	OpenAIAPIKey   string
	YouTubeAPIKey  string
	AWS            AWSConfig

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
	TempDir   string
	JobsDB    string
}

//go:embed config.toml prompt.txt
var defaultFS embed.FS

// WhisperLimit is the maximum file size accepted by OpenAI's Whisper API (25 MiB)
const WhisperLimit int64 = 25 << 20

// ensureDefaultFile creates a file in configDir from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedFilename string) (bool, error) {
	filePath := filepath.Join(configDir, embedFilename)
	if FileExists(filePath) {
		return false, nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedFilename)
	if err != nil {
		return false, fmt.Errorf("reading embedded %s: %w", embedFilename, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return false, fmt.Errorf("writing default %s: %w", embedFilename, err)
	}
	return true, nil
}

// EnsureDefaultConfig writes the default config.toml into configDir if missing
func EnsureDefaultConfig(configDir string) (bool, error) {
	return ensureDefaultFile(configDir, "config.toml")
}

// EnsureDefaultPrompt writes the default prompt.txt into configDir if missing
func EnsureDefaultPrompt(configDir string) (bool, error) {
	return ensureDefaultFile(configDir, "prompt.txt")
}

// LoadEnvFiles loads KEY=value pairs from .env style files into the process
// environment. Missing files are skipped; variables already set win.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if f == "" || !FileExists(f) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading env file %s: %w", f, err)
		}
	}
	return nil
}

// InitConfig initializes Viper and loads configuration. configFile overrides the
// XDG config lookup when non-empty.
func InitConfig(configFile string) (*Config, error) {
	configDir := filepath.Join(xdg.ConfigHome, appName)
	dataDir := filepath.Join(xdg.DataHome, appName)
	cacheDir := filepath.Join(xdg.CacheHome, appName)

	v := viper.New()

	v.SetDefault("variant", VariantLocal)
	v.SetDefault("chat_model", "gpt-4o-mini")
	v.SetDefault("answer_timeout", 2*time.Minute)
	v.SetDefault("transcriber", TranscriberLocal)
	v.SetDefault("whisper_binary", "whisper")
	v.SetDefault("whisper_model", "base")
	v.SetDefault("whisper_timeout", 30*time.Minute)
	v.SetDefault("prefer_captions", false)
	v.SetDefault("prompt", "")
	v.SetDefault("addr", ":8501")
	v.SetDefault("transcripts_dir", filepath.Join(dataDir, "transcripts"))
	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("aws.source", SourceMetadata)
	v.SetDefault("aws.bedrock_region", "ap-south-1")
	v.SetDefault("aws.bedrock_model", "mistral.mistral-large-2402-v1:0")
	v.SetDefault("aws.use_default_credentials", false)
	v.SetDefault("aws.transcribe_timeout", 15*time.Minute)
	v.SetDefault("aws.poll_initial", 2*time.Second)
	v.SetDefault("aws.poll_max", 30*time.Second)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("YTCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// well-known names used by the SDKs and by existing .env files
	_ = v.BindEnv("openai_api_key", "YTCHAT_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("youtube_api_key", "YTCHAT_YOUTUBE_API_KEY", "YOUTUBE_API_KEY")
	_ = v.BindEnv("aws.access_key_id", "YTCHAT_AWS_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	_ = v.BindEnv("aws.secret_access_key", "YTCHAT_AWS_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")
	_ = v.BindEnv("aws.region", "YTCHAT_AWS_REGION", "AWS_REGION")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, Wrap(ErrConfiguration, "reading config file", err)
		}
	}

	config := &Config{
		Variant:        strings.ToLower(v.GetString("variant")),
		ChatModel:      v.GetString("chat_model"),
		AnswerTimeout:  v.GetDuration("answer_timeout"),
		Transcriber:    strings.ToLower(v.GetString("transcriber")),
		WhisperBinary:  v.GetString("whisper_binary"),
		WhisperModel:   v.GetString("whisper_model"),
		WhisperTimeout: v.GetDuration("whisper_timeout"),
		PreferCaptions: v.GetBool("prefer_captions"),
		Prompt:         v.GetString("prompt"),
		Addr:           v.GetString("addr"),
		TranscriptsDir: v.GetString("transcripts_dir"),
		Verbose:        v.GetBool("verbose"),
		Quiet:          v.GetBool("quiet"),
		OpenAIAPIKey:   v.GetString("openai_api_key"),
		YouTubeAPIKey:  v.GetString("youtube_api_key"),
		AWS: AWSConfig{
			Source:                strings.ToLower(v.GetString("aws.source")),
			Region:                v.GetString("aws.region"),
			AccessKeyID:           v.GetString("aws.access_key_id"),
			SecretAccessKey:       v.GetString("aws.secret_access_key"),
			UseDefaultCredentials: v.GetBool("aws.use_default_credentials"),
			BedrockRegion:         v.GetString("aws.bedrock_region"),
			BedrockModel:          v.GetString("aws.bedrock_model"),
			MediaBucket:           v.GetString("aws.media_bucket"),
			TranscribeTimeout:     v.GetDuration("aws.transcribe_timeout"),
			PollInitial:           v.GetDuration("aws.poll_initial"),
			PollMax:               v.GetDuration("aws.poll_max"),
		},

		ConfigDir: configDir,
		DataDir:   dataDir,
		CacheDir:  cacheDir,
		TempDir:   filepath.Join(cacheDir, "temp"),
		JobsDB:    filepath.Join(dataDir, "jobs.db"),
	}

	return config, nil
}

// Validate checks that everything the chosen variant needs is present, naming
// every missing setting at once.
func (c *Config) Validate() error {
	var missing []string
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	switch c.Variant {
	case VariantLocal:
		require(c.OpenAIAPIKey, "openai_api_key (OPENAI_API_KEY)")
		switch c.Transcriber {
		case TranscriberLocal:
			require(c.WhisperBinary, "whisper_binary")
		case TranscriberOpenAI:
		default:
			return Wrap(ErrConfiguration, fmt.Sprintf("unknown transcriber %q (expected %q or %q)", c.Transcriber, TranscriberLocal, TranscriberOpenAI), nil)
		}
		if err := ValidateModel(c.ChatModel); err != nil {
			return Wrap(ErrConfiguration, "chat_model", err)
		}
	case VariantAWS:
		require(c.AWS.Region, "aws.region (AWS_REGION)")
		require(c.AWS.BedrockModel, "aws.bedrock_model")
		if !c.AWS.UseDefaultCredentials {
			require(c.AWS.AccessKeyID, "aws.access_key_id (AWS_ACCESS_KEY_ID)")
			require(c.AWS.SecretAccessKey, "aws.secret_access_key (AWS_SECRET_ACCESS_KEY)")
		}
		switch c.AWS.Source {
		case SourceMetadata:
			require(c.YouTubeAPIKey, "youtube_api_key (YOUTUBE_API_KEY)")
		case SourceTranscribe:
			require(c.AWS.MediaBucket, "aws.media_bucket")
		default:
			return Wrap(ErrConfiguration, fmt.Sprintf("unknown aws.source %q (expected %q or %q)", c.AWS.Source, SourceMetadata, SourceTranscribe), nil)
		}
	default:
		return Wrap(ErrConfiguration, fmt.Sprintf("unknown variant %q (expected %q or %q)", c.Variant, VariantLocal, VariantAWS), nil)
	}

	if len(missing) > 0 {
		return Wrap(ErrConfiguration, "missing "+strings.Join(missing, ", "), nil)
	}
	return nil
}
