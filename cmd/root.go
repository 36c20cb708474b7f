package cmd

import (
	"fmt"
	"os"

	"go-battle/catalog"
	"go-battle/config"
	"go-battle/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "go-battle",
	Short: "Two-sided resource battle server",
	Long: `go-battle runs resource battles between a player and a computer opponent.
State is kept in Redis; clients follow a battle over HTTP and websockets.`,
	SilenceUsage: true,
}

// Execute is called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
}

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
}

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	var cat *catalog.Catalog
	if cfg.Battle.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.Battle.CatalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	log.Info("catalog loaded", zap.Int("cards", len(cat.Templates())), zap.String("path", cfg.Battle.CatalogPath))
	return &app{cfg: cfg, logger: log, catalog: cat}, nil
}
