package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/defistate/liquidator-go/cmd/liquidator/config"
	"github.com/spf13/cobra"
)

// --- VISUAL CONSTANTS ---
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Red   = "\033[31m"
	Green = "\033[32m"
	Cyan  = "\033[36m"
	Gray  = "\033[37m"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Red+err.Error()+Reset)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string
	c := &cobra.Command{
		Use:           "liquidator",
		Short:         "Routes token liquidations through registered pools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML configuration")

	load := func() (*config.LiquidatorConfig, error) {
		return config.LoadConfig(configPath)
	}
	c.AddCommand(
		serveCommand(load),
		routeCommand(load),
		liquidateCommand(load),
	)
	return c
}

type configLoader func() (*config.LiquidatorConfig, error)

func newLogger(cfg *config.LiquidatorConfig, json bool) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
