package internal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// SupportedChatModels lists the OpenAI models accepted for answering questions
var SupportedChatModels = []string{"gpt-4o", "gpt-4o-mini", "o4-mini", "gpt-4.1-nano", "gpt-3.5-turbo"}

// ValidateModel checks if the model is supported
func ValidateModel(model string) error {
	if slices.Contains(SupportedChatModels, model) {
		return nil
	}
	return fmt.Errorf("unsupported model: %s (supported: %s)", model, strings.Join(SupportedChatModels, ", "))
}

// OpenAIClientInterface defines the interface for OpenAI client operations
type OpenAIClientInterface interface {
	CreateTranscription(ctx context.Context, file *os.File) (string, error)
	CreateChatCompletion(ctx context.Context, model, prompt string) (string, error)
}

// OpenAIClient wraps the official OpenAI Go SDK
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates a new OpenAI client. Extra options are passed to the SDK.
func NewOpenAIClient(apiKey string, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIClient{client: openai.NewClient(opts...)}
}

// CreateTranscription implements the transcription method
func (c *OpenAIClient) CreateTranscription(ctx context.Context, file *os.File) (string, error) {
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  file,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CreateChatCompletion implements the chat completion method
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, model, prompt string) (string, error) {
	if err := ValidateModel(model); err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIModel answers prompts with an OpenAI chat model
type OpenAIModel struct {
	client OpenAIClientInterface
	model  string
}

// NewOpenAIModel creates a LanguageModel backed by the chat completions API
func NewOpenAIModel(client OpenAIClientInterface, model string) *OpenAIModel {
	return &OpenAIModel{client: client, model: model}
}

// Complete implements LanguageModel
func (m *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	content, err := m.client.CreateChatCompletion(ctx, m.model, prompt)
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	return content, nil
}

// WhisperAPI transcribes audio with OpenAI's hosted Whisper, splitting files
// larger than the upload limit
type WhisperAPI struct {
	client OpenAIClientInterface
	audio  *Audio
	limit  int64
	logger *slog.Logger
}

// NewWhisperAPI creates a transcriber for the hosted Whisper API
func NewWhisperAPI(client OpenAIClientInterface, audio *Audio, limit int64, logger *slog.Logger) *WhisperAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &WhisperAPI{client: client, audio: audio, limit: limit, logger: logger}
}

// Transcribe implements Transcriber
func (w *WhisperAPI) Transcribe(ctx context.Context, audioFile string) (string, error) {
	if err := ValidateAudioFile(audioFile); err != nil {
		return "", err
	}

	info, err := os.Stat(audioFile)
	if err != nil {
		return "", fmt.Errorf("getting audio file info: %w", err)
	}
	numChunks := int(math.Ceil(float64(info.Size()) / float64(w.limit)))

	chunks := []string{audioFile}
	if numChunks > 1 {
		split, err := w.audio.Split(ctx, audioFile, numChunks)
		if err != nil {
			return "", Wrap(ErrTranscriptionFailed, "splitting audio", err)
		}
		defer split.Remove()
		chunks = split.Files
	}

	transcript, err := w.processAudioChunks(ctx, chunks)
	if err != nil {
		return "", Wrap(ErrTranscriptionFailed, "whisper api", err)
	}
	return transcript, nil
}

// processAudioChunks transcribes chunks one after another; concurrent uploads
// occasionally returned a garbled chunk
func (w *WhisperAPI) processAudioChunks(ctx context.Context, chunks []string) (string, error) {
	var sb strings.Builder
	for i, chunkPath := range chunks {
		file, err := os.Open(chunkPath)
		if err != nil {
			return "", fmt.Errorf("opening chunk %s: %w", chunkPath, err)
		}

		text, err := w.client.CreateTranscription(ctx, file)
		if closeErr := file.Close(); closeErr != nil {
			w.logger.Warn("closing chunk", slog.String("file", chunkPath), slog.Any("error", closeErr))
		}
		if err != nil {
			return "", fmt.Errorf("transcribing chunk %d: %w", i+1, err)
		}

		sb.WriteString(text)
		if i < len(chunks)-1 {
			sb.WriteString("\n")
		}
		w.logger.Debug("transcribed chunk", slog.Int("chunk", i+1), slog.Int("of", len(chunks)))
		if len(chunks) > 1 {
			reportStatus(ctx, fmt.Sprintf("Transcribed chunk %d/%d", i+1, len(chunks)))
		}
	}

	return sb.String(), nil
}
