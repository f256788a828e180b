package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// askCmd loads a video and answers one question about it
var askCmd = &cobra.Command{
	Use:   "ask [YouTube URL or ID] [question]",
	Short: "Ask a single question about a YouTube video",
	Example: `  ytchat ask "https://www.youtube.com/watch?v=tAP1eZYEuKA" "What tools are mentioned?"
  ytchat ask tAP1eZYEuKA "Summarize the conclusion"

  # Answer from title and description through Bedrock
  ytchat ask tAP1eZYEuKA "Who is the speaker?" --variant aws

  # Print the plain answer without markdown rendering
  ytchat ask tAP1eZYEuKA "List the chapters" --raw`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		youtubeURL, _ := internal.ParseArg(args[0])
		ex, err := app.Ask(cmd.Context(), youtubeURL, args[1])
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetBool("raw")
		if raw {
			fmt.Println(ex.Answer)
			return nil
		}

		rendered, err := internal.RenderMarkdown(internal.ExchangeMarkdown(ex))
		if err != nil {
			return err
		}
		fmt.Print(rendered)
		return nil
	},
}

func init() {
	internal.AddVariantFlags(askCmd)
	internal.AddModelFlags(askCmd)
	askCmd.Flags().Bool("raw", false, "Print the answer without markdown rendering")
	rootCmd.AddCommand(askCmd)
}
