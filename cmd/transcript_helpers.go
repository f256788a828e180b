package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// fetchContent acquires the text for arg through the configured variant
func fetchContent(cmd *cobra.Command, app *internal.App, arg string) (string, error) {
	youtubeURL, _ := internal.ParseArg(arg)
	_, content, err := app.ContentWithStatus(cmd.Context(), youtubeURL, !config.Quiet)
	if err != nil {
		return "", err
	}
	return content, nil
}
