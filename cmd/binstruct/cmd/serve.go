/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/binstruct/pkg/api"
	"github.com/ssargent/binstruct/pkg/config"
)

const autoAPIKey = "auto"

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the binstruct REST API server over the configured catalog and data directory.

When the configured API key is "auto", a key is generated for this run only.

Examples:
  binstruct serve
  binstruct serve --api-key=mysecretkey --port=9090 --bind=0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := envFrom(cmd)
		if err != nil {
			return err
		}

		serverConfig := api.ServerConfig{
			Port:   e.cfg.Port,
			Bind:   e.cfg.Bind,
			APIKey: e.cfg.Security.APIKey,
		}
		if cmd.Flags().Changed("port") {
			serverConfig.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			serverConfig.Bind, _ = cmd.Flags().GetString("bind")
		}
		if v, _ := cmd.Flags().GetString("api-key"); v != "" {
			serverConfig.APIKey = v
		}
		serverConfig.MaxBodyBytes, _ = cmd.Flags().GetInt64("max-body-bytes")

		generated, err := resolveAPIKey(&serverConfig)
		if err != nil {
			return err
		}
		if generated {
			cmd.Printf("Generated API key for this run: %s\n", serverConfig.APIKey)
		}

		cat, err := e.loadCatalog()
		if err != nil {
			return err
		}
		store, err := e.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		e.logger.Info("starting server",
			zap.String("catalog", e.cfg.Catalog),
			zap.String("data_dir", e.cfg.DataDir),
			zap.Int("structs", cat.Len()))

		starter := container.GetServerFactory().CreateServerStarter(e.logger)
		return starter.StartServer(ctx, cat, store, serverConfig)
	},
}

// resolveAPIKey replaces an empty or "auto" key with a generated one
func resolveAPIKey(c *api.ServerConfig) (bool, error) {
	if c.APIKey != "" && c.APIKey != autoAPIKey {
		return false, nil
	}
	key, err := config.GenerateSecureKey(32)
	if err != nil {
		return false, err
	}
	c.APIKey = key
	return true, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key for authentication (overrides config)")
	serveCmd.Flags().Int64("max-body-bytes", 8<<20, "Maximum request body size")
}
