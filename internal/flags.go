package internal

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

// AddVariantFlags adds flags choosing the variant and its content source
func AddVariantFlags(cmd *cobra.Command) {
	cmd.Flags().String("variant", "", "App variant: local (yt-dlp + Whisper + OpenAI) or aws (YouTube API/Transcribe + Bedrock)")
	cmd.Flags().String("source", "", "Content source for the aws variant: metadata or transcribe")
}

// AddModelFlags adds flags related to answer generation
func AddModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "OpenAI chat model (local variant)")
	cmd.Flags().StringP("prompt", "p", "", "Custom prompt (string or file path)")
}

// HandleVariantFlags applies --variant, --source and --model to config
func HandleVariantFlags(cmd *cobra.Command, config *Config) error {
	if f := cmd.Flags().Lookup("variant"); f != nil && f.Changed {
		config.Variant = strings.ToLower(f.Value.String())
	}
	if f := cmd.Flags().Lookup("source"); f != nil && f.Changed {
		config.AWS.Source = strings.ToLower(f.Value.String())
	}
	if f := cmd.Flags().Lookup("model"); f != nil && f.Changed {
		config.ChatModel = f.Value.String()
	}
	return nil
}

// HandlePromptFlag processes the --prompt flag to set custom prompt
func HandlePromptFlag(cmd *cobra.Command, app *App) error {
	promptFlag := cmd.Flags().Lookup("prompt")
	if promptFlag == nil || !promptFlag.Changed {
		return nil
	}

	prompt, err := cmd.Flags().GetString("prompt")
	if err != nil {
		return fmt.Errorf("failed to get prompt flag: %w", err)
	}
	if prompt == "" {
		return nil
	}

	app.SetPromptManager(NewPromptManager(app.config.ConfigDir, prompt))

	if IsLikelyFilePath(prompt) && FileExists(prompt) {
		app.logger.Debug("using custom prompt file", slog.String("path", prompt))
	} else {
		app.logger.Debug("using custom prompt string")
	}
	return nil
}

// HandleOutputFlags processes --verbose and --quiet to update config
func HandleOutputFlags(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	config.Verbose = config.Verbose || verbose
	config.Quiet = config.Quiet || quiet
	return nil
}
