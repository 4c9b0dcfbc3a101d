package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// SetupCmd configures MCP for AI clients.
type SetupCmd struct {
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	Format   string `help:"Output format (json|text)" enum:"json,text" default:"json"`
	FilePath string `help:"Custom directory for the local configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	config := generateConfig(g.DB)

	// If no specific client is specified, output config to stdout
	if !c.Claude && !c.Cursor {
		return c.outputDefaultConfig(g, config)
	}

	// If neither local nor global is specified, default to local
	if !c.Local && !c.Global {
		c.Local = true
	}

	for _, client := range []struct {
		name    string
		enabled bool
	}{{"claude", c.Claude}, {"cursor", c.Cursor}} {
		if !client.enabled {
			continue
		}
		if err := c.setupClient(g, client.name, config); err != nil {
			return err
		}
	}
	return nil
}

func (c *SetupCmd) outputDefaultConfig(g *Globals, config map[string]any) error {
	if c.Format == "json" {
		return g.writeJSON(config)
	}

	out := g.stdout()
	fmt.Fprintln(out, "# Add this to your MCP client configuration:")
	fmt.Fprintln(out)
	for key, value := range config {
		fmt.Fprintf(out, "%s: %s\n", key, toJSON(value))
	}
	return nil
}

func (c *SetupCmd) setupClient(g *Globals, client string, config map[string]any) error {
	if c.Global {
		globalPath := getGlobalConfigPath(client)
		if err := writeConfig(globalPath, config, c.Format); err != nil {
			return err
		}
		g.summary(color.FgGreen, "✓ Created global %s MCP config at %s", client, globalPath)
	}

	if c.Local {
		localPath := getLocalConfigPath(".", client)
		if c.FilePath != "" {
			localPath = filepath.Join(c.FilePath, "mcp.json")
		}
		if err := writeConfig(localPath, config, c.Format); err != nil {
			return err
		}
		g.summary(color.FgGreen, "✓ Created local %s MCP config at %s", client, localPath)
	}
	return nil
}

// generateConfig returns the MCP server entry for prophet. The database
// path is made absolute so clients can start the server from any
// directory.
func generateConfig(db string) map[string]any {
	if abs, err := filepath.Abs(db); err == nil {
		db = abs
	}
	return map[string]any{
		"mcpServers": map[string]any{
			"prophet": map[string]any{
				"command": "prophet",
				"args":    []string{"serve"},
				"env":     map[string]string{"PROPHET_DB": db},
			},
		},
	}
}

// Path helpers

func getLocalConfigPath(basePath, client string) string {
	return filepath.Join(basePath, getClientConfigDir(client), "mcp.json")
}

func getGlobalConfigPath(client string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
	}
	return filepath.Join(homeDir, getClientConfigDir(client), "global", "mcp.json")
}

func getClientConfigDir(client string) string {
	switch client {
	case "cursor":
		return ".cursor"
	default:
		return ".claude"
	}
}

// writeConfig writes config to configPath as JSON or key-value text.
func writeConfig(configPath string, config map[string]any, format string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	var content []byte
	if format == "json" {
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		content = append(data, '\n')
	} else {
		var sb strings.Builder
		sb.WriteString("# MCP Configuration for Prophet\n")
		sb.WriteString("# Generated by prophet setup\n\n")
		for key, value := range config {
			sb.WriteString(fmt.Sprintf("%s: %s\n", key, toJSON(value)))
		}
		content = []byte(sb.String())
	}

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func toJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}
