package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/GLAO/am"
	"github.com/teranos/GLAO/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage GLAO configuration",
	Long: sym.AM + ` am — Manage GLAO configuration

Display and manage error-budget configuration settings.

Configuration sources (in order of precedence):
1. Environment variables (GLAO_* prefix)
2. Project config (./glao.toml, searches up directories)
3. User config (~/.glao/glao.toml)
4. System config (/etc/glao/config.toml)
5. Default values

Examples:
  glao am show                    # Show current configuration
  glao am show --format json      # Show configuration in JSON format
  glao am get basis.modes         # Get specific config value
  glao am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current GLAO configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., basis.modes, pipeline.workers)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current GLAO configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long:  "List all configuration sources in order of precedence, showing which files exist.",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigUnvalidated()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# GLAO configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# GLAO configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

// loadConfigUnvalidated loads the configuration without the validation
// pass, so `am show` can display a broken config for debugging.
func loadConfigUnvalidated() (*am.Config, error) {
	if ConfigPath != "" {
		return am.LoadFromFile(ConfigPath)
	}
	return am.Load()
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := am.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	fmt.Println(am.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigUnvalidated()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Println("✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	homeDir, _ := os.UserHomeDir()

	fmt.Println("Configuration cascade (later overrides earlier):")
	paths := []struct {
		label string
		path  string
	}{
		{"SYSTEM ", "/etc/glao/config.toml"},
		{"USER   ", filepath.Join(homeDir, ".glao", "glao.toml")},
		{"PROJECT", "./glao.toml (searches up directories)"},
		{"ENV    ", "GLAO_* environment variables"},
	}
	fmt.Println("  1. [DEFAULT] Built-in defaults")
	for i, p := range paths {
		marker := ""
		if _, err := os.Stat(p.path); err == nil {
			marker = "  (present)"
		}
		fmt.Printf("  %d. [%s] %s%s\n", i+2, p.label, p.path, marker)
	}
	if ConfigPath != "" {
		fmt.Printf("\n--config overrides the cascade: %s\n", ConfigPath)
	}
	return nil
}
