package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"canvasboard/internal/config"
	"canvasboard/internal/mongostore"
	"canvasboard/internal/secret"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.Path()
			}
			if err := config.EnsureExists(path); err != nil {
				return err
			}
			fmt.Printf("  %s  %s\n", brand.Sprintf("%-12s", "Config"), path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-secret <key>",
		Short: "Store a secret such as storage.password_secret in the keychain (value read from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			value = bytes.TrimRight(value, "\r\n")
			if len(value) == 0 {
				return fmt.Errorf("empty secret")
			}
			if err := secret.NewKeychainStore().Set(args[0], value); err != nil {
				return err
			}
			fmt.Printf("  %s  %s\n", brand.Sprintf("%-12s", "Stored"), args[0])
			return nil
		},
	})
	return cmd
}

func printConfig(cfg *config.Config) {
	row := func(k, v string) {
		fmt.Printf("  %s  %s\n", brand.Sprintf("%-18s", k), v)
	}
	section := func(name string) {
		fmt.Println()
		subtle.Printf("  [%s]\n", name)
	}

	section("server")
	row("addr", cfg.Server.Addr)
	row("maintenance", orNone(cfg.Server.MaintenanceSchedule))

	section("storage")
	row("driver", cfg.Storage.Driver)
	switch cfg.Storage.Driver {
	case driverMongo:
		row("mongo_uri", mongostore.MaskURI(cfg.Storage.MongoURI))
		row("mongo_database", orNone(cfg.Storage.MongoDatabase))
	default:
		driver, _, err := sqlTarget(cfg.Storage)
		if err != nil {
			row("error", bad.Sprint(err))
			break
		}
		if cfg.Storage.DSN != "" {
			row("dsn", "(set)")
		} else if cfg.Storage.PasswordSecret != "" && driver != "sqlite" {
			row("host", fmt.Sprintf("%s:%d", cfg.Storage.Host, cfg.Storage.Port))
			row("password_secret", cfg.Storage.PasswordSecret)
		} else if driver == "sqlite" {
			row("data_dir", cfg.Storage.DataDir)
		} else {
			row("host", fmt.Sprintf("%s:%d", cfg.Storage.Host, cfg.Storage.Port))
			row("database", cfg.Storage.Database)
		}
	}

	section("api")
	row("base_url", cfg.API.BaseURL)
	row("timeout", cfg.API.Timeout.D().String())

	section("persistence")
	row("debounce_text", cfg.Persistence.DebounceText.D().String())
	row("debounce_timer", cfg.Persistence.DebounceTimer.D().String())
	row("debounce_drawing", cfg.Persistence.DebounceDrawing.D().String())
	row("sweep_interval", cfg.Persistence.SweepInterval.D().String())
}

func orNone(s string) string {
	if s == "" {
		return subtle.Sprint("(none)")
	}
	return s
}
