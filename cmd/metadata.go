package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// metadataCmd prints what yt-dlp knows about a video, without downloading it
var metadataCmd = &cobra.Command{
	Use:   "metadata [YouTube URL or ID]",
	Short: "Print video details (title, channel, duration, chapters) as JSON",
	Example: `  ytchat metadata "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  ytchat metadata tAP1eZYEuKA --pretty

  # Write to a file
  ytchat metadata tAP1eZYEuKA -o metadata.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		youtubeURL, _ := internal.ParseArg(args[0])

		ctx := cmd.Context()
		spinner := internal.NewUIManager(config.Quiet).NewSpinner("Fetching video metadata...")
		ctx = internal.WithStatus(ctx, spinner)

		yt := internal.NewYouTube(config.CacheDir, logger)
		metadata, err := internal.CachedMetadata(ctx, yt, config.TranscriptsDir, youtubeURL, logger)
		spinner.Finish()
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if outputFile, _ := cmd.Flags().GetString("output"); outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outputFile, err)
			}
			defer f.Close()
			out = f
		}

		enc := json.NewEncoder(out)
		if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(metadata); err != nil {
			return fmt.Errorf("encoding metadata: %w", err)
		}
		return nil
	},
}

func init() {
	metadataCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	metadataCmd.Flags().Bool("pretty", false, "Indent the JSON output")
	rootCmd.AddCommand(metadataCmd)
}
