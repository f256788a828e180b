package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/rtzll/ytchat/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server for chatting with YouTube videos",
	Long: `Run a Model Context Protocol (MCP) server that exposes ytchat as tools.

The MCP server provides these tools:
- load_video: Load a video's transcript (or title and description)
- ask_video: Ask a question about the loaded video
- get_conversation: Return the loaded video and all questions and answers
- get_video_metadata: Fetch video metadata without loading it

All tool calls share one conversation, like a single browser tab.

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout; logs go to the MCP log file
- http: HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport (e.g. for Claude Desktop)
  ytchat mcp

  # Use the AWS variant
  ytchat mcp --variant aws

  # Run MCP server with HTTP transport on port 8080
  ytchat mcp --transport=http --port=8080

  # Set up Claude Desktop integration
  ytchat mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// stdio belongs to the protocol, so progress output is off
		config.Quiet = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		if transport != "http" {
			fileLogger, closeLog := internal.NewFileLogger(config.CacheDir, "mcp.log", config.Verbose)
			defer closeLog()
			logger = fileLogger
		}

		app, err := newApp(cmd)
		if err != nil {
			logger.Error("starting mcp server", slog.Any("error", err))
			return err
		}
		defer app.Close()

		mcpServer := internal.NewMCPServer(app, version)
		logger.Info("starting mcp server",
			slog.String("transport", transport),
			slog.Int("port", port),
			slog.String("variant", config.Variant))

		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

// mcpLogPath is where the stdio transport writes its logs
func mcpLogPath() string {
	return filepath.Join(config.CacheDir, "mcp.log")
}

// setupClaudeCmd represents the setup-claude subcommand
var setupClaudeCmd = &cobra.Command{
	Use:   "setup-claude",
	Short: "Configure Claude Desktop to use the ytchat MCP server",
	Long: `Automatically configure Claude Desktop to use ytchat as an MCP server.

This command will:
- Detect Claude Desktop installation and config location
- Add the ytchat MCP server configuration to claude_desktop_config.json
- Preserve existing MCP server configurations
- Set appropriate XDG environment variables for the current platform`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setupClaudeDesktop()
	},
}

// MCPServerConfig is one entry under mcpServers in claude_desktop_config.json
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

func setupClaudeDesktop() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("getting executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	configPath, err := claudeDesktopConfigPath(runtime.GOOS)
	if err != nil {
		return fmt.Errorf("getting Claude Desktop config path: %w", err)
	}

	entry := MCPServerConfig{
		Command: execPath,
		Args:    []string{"mcp"},
		Env: map[string]string{
			"XDG_DATA_HOME":   xdg.DataHome,
			"XDG_CONFIG_HOME": xdg.ConfigHome,
			"XDG_CACHE_HOME":  xdg.CacheHome,
		},
	}
	if err := registerMCPServer(configPath, "ytchat", entry); err != nil {
		return err
	}

	fmt.Println("Successfully configured Claude Desktop MCP server")
	fmt.Println("Restart Claude Desktop to use the ytchat MCP server")
	return nil
}

// registerMCPServer adds or replaces the named server in the Claude Desktop
// config at path. Other servers and unrelated top level keys are kept as is.
func registerMCPServer(path, name string, entry MCPServerConfig) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("config for Claude Desktop not found at %s", path)
	}
	if err != nil {
		return fmt.Errorf("reading existing config: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing existing config: %w", err)
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}

	servers := make(map[string]json.RawMessage)
	if raw, ok := doc["mcpServers"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return fmt.Errorf("parsing mcpServers: %w", err)
		}
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding server entry: %w", err)
	}
	servers[name] = encoded

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return fmt.Errorf("encoding mcpServers: %w", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// claudeDesktopConfigPath returns where Claude Desktop keeps its config on goos
func claudeDesktopConfigPath(goos string) (string, error) {
	const file = "claude_desktop_config.json"

	switch goos {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", file), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", file), nil
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "Claude", file), nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	internal.AddVariantFlags(mcpCmd)
	internal.AddModelFlags(mcpCmd)
	mcpCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(mcpCmd)
}
