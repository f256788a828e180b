package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// serveCmd runs the browser UI
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser chat UI",
	Example: `  # Local variant on the default address (:8501)
  ytchat serve

  # AWS variant answering from the video's title and description
  ytchat serve --variant aws

  # AWS variant transcribing the video with AWS Transcribe
  ytchat serve --variant aws --source transcribe

  # Listen somewhere else
  ytchat serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = config.Addr
		}
		ttl, _ := cmd.Flags().GetDuration("session-ttl")

		sessions := internal.NewSessionStore(app.Pipeline(), ttl)
		server := internal.NewServer(app.Pipeline(), sessions, logger)

		app.UI().Printf("%s variant listening on %s\n", config.Variant, addr)
		return server.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	internal.AddVariantFlags(serveCmd)
	internal.AddModelFlags(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8501)")
	serveCmd.Flags().Duration("session-ttl", 0, "Forget idle browser sessions after this long (default 2h)")
	rootCmd.AddCommand(serveCmd)
}
