package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// pathsCmd lists every file and directory ytchat reads or writes
var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show where ytchat keeps config, caches and logs",
	Example: `  ytchat paths

  # Only show paths that exist already
  ytchat paths --existing`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		existing, _ := cmd.Flags().GetBool("existing")

		entries := []struct{ name, path string }{
			{"config", filepath.Join(config.ConfigDir, "config.toml")},
			{"prompt", filepath.Join(config.ConfigDir, "prompt.txt")},
			{"data", config.DataDir},
			{"transcripts", config.TranscriptsDir},
			{"transcription jobs", config.JobsDB},
			{"cache", config.CacheDir},
			{"temp", config.TempDir},
			{"mcp log", mcpLogPath()},
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, e := range entries {
			if existing && !internal.FileExists(e.path) {
				continue
			}
			fmt.Fprintf(w, "%s\t%s\n", e.name, e.path)
		}
		return w.Flush()
	},
}

func init() {
	pathsCmd.Flags().Bool("existing", false, "Only list paths that already exist")
	rootCmd.AddCommand(pathsCmd)
}
