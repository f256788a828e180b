package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

var (
	config *internal.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ytchat",
	Short: "Ask questions about YouTube videos",
	Long: `ytchat turns a YouTube video into text and lets you ask questions about it.

Two variants are available:
  local  downloads the audio with yt-dlp, transcribes it with Whisper and
         answers with an OpenAI chat model
  aws    uses the video's title and description from the YouTube Data API
         (or an AWS Transcribe job) and answers with a Mistral model on Bedrock

Every question is answered on its own against the loaded text.`,
	Example: `  # Start the browser UI on http://localhost:8501
  ytchat serve

  # Use the AWS powered variant
  ytchat serve --variant aws

  # Ask a single question from the terminal
  ytchat ask tAP1eZYEuKA "What is the main argument?"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

// setup loads .env files and configuration and prepares the XDG directories
func setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := internal.LoadEnvFiles(".env", envFile); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := internal.InitConfig(configFile)
	if err != nil {
		return err
	}
	config = cfg

	if err := internal.HandleOutputFlags(cmd, config); err != nil {
		return err
	}

	logger = internal.NewLogger(os.Stderr, config.Verbose)
	slog.SetDefault(logger)

	if err := internal.EnsureDirs(config.ConfigDir, config.DataDir, config.CacheDir); err != nil {
		return fmt.Errorf("creating XDG directories: %w", err)
	}
	if created, err := internal.EnsureDefaultConfig(config.ConfigDir); err != nil {
		logger.Warn("failed to ensure default config", slog.Any("error", err))
	} else if created {
		logger.Debug("wrote default config", slog.String("dir", config.ConfigDir))
	}
	if _, err := internal.EnsureDefaultPrompt(config.ConfigDir); err != nil {
		logger.Warn("failed to ensure default prompt", slog.Any("error", err))
	}
	return nil
}

// newApp validates the configuration for the chosen variant and wires the app
func newApp(cmd *cobra.Command) (*internal.App, error) {
	if err := internal.HandleVariantFlags(cmd, config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	app, err := internal.NewApp(cmd.Context(), config, logger)
	if err != nil {
		return nil, err
	}
	if err := internal.HandlePromptFlag(cmd, app); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal. Cleaning up and shutting down...")
		cancel()

		// give the server a moment to drain, then clean up regardless
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cleanupCancel()

		cleanupDone := make(chan struct{})
		go func() {
			if config != nil {
				if err := internal.CleanupTempDir(config.TempDir); err != nil {
					fmt.Fprintf(os.Stderr, "Error cleaning up temporary files: %v\n", err)
				}
			}
			close(cleanupDone)
		}()

		select {
		case <-cleanupDone:
		case <-cleanupCtx.Done():
			fmt.Fprintln(os.Stderr, "Warning: Cleanup timed out, forcing exit")
		}

		// a second interrupt forces exit
		<-sigCh
		os.Exit(1)
	}()

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	if err != nil && logger != nil {
		logger.Debug("command failed", slog.Any("error", err))
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default is $XDG_CONFIG_HOME/ytchat/config.toml)")
	rootCmd.PersistentFlags().String("env-file", "", "Extra .env file to load before reading configuration")
}
