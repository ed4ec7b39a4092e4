package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"canvasboard/internal/config"
)

var version = "1.0.0"

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	bad    = color.New(color.FgRed)
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "boardd",
	Short:         "Canvas board backend",
	Long:          brand.Sprint("boardd") + " serves boards and nodes over REST and MCP",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("boardd {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.toml (default "+config.Path()+")")

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		configCmd(),
	)
}

// Execute runs the root command and prints any error it returns.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		bad.Fprintf(color.Error, "boardd: %v\n", err)
	}
	return err
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	return config.Load(path)
}
