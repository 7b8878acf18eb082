/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/binstruct/pkg/config"
)

const starterCatalog = `# Struct definitions: each entry is a list of [format, name] pairs.
# A name starting with ':' is a symbol, '~' marks an anonymous field.
structs:
  gif_header:
    - [a3, magic]
    - [a3, version]
    - [v, width]
    - [v, height]
    - [a, ~]
    - [C, bg_color_index]
    - [C, pixel_aspect_ratio]
`

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and a starter struct catalog",
	Long: `Create a configuration file with a generated API key, and a starter
struct catalog next to it if none exists yet.

Examples:
	  binstruct init
	  binstruct init --config ./binstruct.yaml --data-dir ./data --print-keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}
		force, _ := cmd.Flags().GetBool("force")
		printKeys, _ := cmd.Flags().GetBool("print-keys")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		return runInit(cmd, e, dataDir, force, printKeys)
	},
}

func runInit(cmd *cobra.Command, e *env, dataDir string, force, printKeys bool) error {
	if config.ConfigExists(e.configPath) && !force {
		cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", e.configPath)
		return nil
	}

	cfg, err := config.BootstrapConfig(e.configPath, dataDir)
	if err != nil {
		return err
	}
	e.logger.Info("wrote config", zap.String("path", e.configPath))
	cmd.Printf("Config written to %s\n", e.configPath)

	catalogPath := config.ResolvePath(e.configPath, cfg.Catalog)
	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		if err := os.WriteFile(catalogPath, []byte(starterCatalog), 0640); err != nil {
			return fmt.Errorf("failed to write starter catalog: %w", err)
		}
		cmd.Printf("Starter catalog written to %s\n", catalogPath)
	}

	if printKeys {
		cmd.Printf("API key: %s\n", cfg.Security.APIKey)
	} else {
		cmd.Printf("API key: %s...\n", cfg.Security.APIKey[:8])
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("print-keys", false, "Print the full generated API key")
}
