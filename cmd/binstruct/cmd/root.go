/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ssargent/binstruct/pkg/binstruct"
	"github.com/ssargent/binstruct/pkg/catalog"
	"github.com/ssargent/binstruct/pkg/config"
	"github.com/ssargent/binstruct/pkg/di"
	"github.com/ssargent/binstruct/pkg/logging"
	"github.com/ssargent/binstruct/pkg/storage"
)

var container *di.Container

// SetContainer injects the dependency container used by all commands
func SetContainer(c *di.Container) {
	container = c
}

type envKey struct{}

// env is the per-invocation state shared by subcommands
type env struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
	registry   *binstruct.Registry
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "binstruct",
	Short: "binstruct - declarative binary record codec",
	Long: `binstruct decodes and encodes fixed binary record layouts described
by a catalog of struct definitions, and stores encoded records.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().String("catalog", "", "Path to the struct catalog (overrides config)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for stored records (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error or off (overrides config)")
}

// loadEnv reads the config file, if there is one, and applies flag overrides
func loadEnv(cmd *cobra.Command) (*env, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		cfg.Catalog = config.ResolvePath(configPath, cfg.Catalog)
		cfg.DataDir = config.ResolvePath(configPath, cfg.DataDir)
	}

	if v, _ := cmd.Flags().GetString("catalog"); v != "" {
		cfg.Catalog = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.SetLogger(logger)

	return &env{
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		registry:   binstruct.NewRegistry(binstruct.WithLogger(logger)),
	}, nil
}

func envFrom(cmd *cobra.Command) (*env, error) {
	if cmd.Context() != nil {
		if e, ok := cmd.Context().Value(envKey{}).(*env); ok {
			return e, nil
		}
	}
	return nil, errors.New("command environment not initialized")
}

func requireContainer() error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}
	return nil
}

// loadCatalog loads the configured catalog through the container
func (e *env) loadCatalog() (*catalog.Catalog, error) {
	if err := requireContainer(); err != nil {
		return nil, err
	}
	cat, err := container.GetCatalogLoader()(e.cfg.Catalog, catalog.WithRegistry(e.registry))
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", e.cfg.Catalog, err)
	}
	e.logger.Debug("loaded catalog", zap.String("path", e.cfg.Catalog), zap.Int("structs", cat.Len()))
	return cat, nil
}

// lookup loads the catalog and resolves one struct
func (e *env) lookup(name string) (*binstruct.Struct, error) {
	cat, err := e.loadCatalog()
	if err != nil {
		return nil, err
	}
	return cat.Lookup(name)
}

// openStore opens the record store in the configured data directory
func (e *env) openStore() (*storage.RecordStore, error) {
	if err := requireContainer(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return container.GetStoreOpener()(e.cfg.DataDir, storage.WithLogger(e.logger))
}
