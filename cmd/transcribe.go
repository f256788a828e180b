package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// transcribeCmd prints the text questions would be answered against
var transcribeCmd = &cobra.Command{
	Use:   "transcribe [YouTube URL or ID]",
	Short: "Print the transcript (or metadata text) for a YouTube video",
	Example: `  # Transcribe with the local Whisper model (cached afterwards)
  ytchat transcribe "https://www.youtube.com/watch?v=tAP1eZYEuKA"
  ytchat transcribe tAP1eZYEuKA

  # Save transcript to file
  ytchat transcribe tAP1eZYEuKA -o transcript.txt

  # Use an AWS Transcribe job
  ytchat transcribe tAP1eZYEuKA --variant aws --source transcribe`,
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

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			return os.WriteFile(outputFile, []byte(content), 0644)
		}

		fmt.Println(content)
		return nil
	},
}

func init() {
	internal.AddVariantFlags(transcribeCmd)
	transcribeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	rootCmd.AddCommand(transcribeCmd)
}
