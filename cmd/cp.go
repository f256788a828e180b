package cmd

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// cpCmd copies the transcript to the system clipboard instead of printing to stdout.
var cpCmd = &cobra.Command{
	Use:   "cp [URL]",
	Short: "Copy the transcript for a YouTube video to the clipboard",
	Example: `  ytchat cp "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  ytchat cp tAP1eZYEuKA

  # Copy title and description from the YouTube Data API
  ytchat cp tAP1eZYEuKA --variant aws`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		content, err := fetchContent(cmd, app, args[0])
		if err != nil {
			return err
		}

		if err := clipboard.WriteAll(content); err != nil {
			return fmt.Errorf("copying transcript to clipboard: %w", err)
		}

		app.UI().Println("Transcript copied to clipboard")
		return nil
	},
}

func init() {
	internal.AddVariantFlags(cpCmd)
	rootCmd.AddCommand(cpCmd)
}
