package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"canvasboard/internal/server"
	"canvasboard/internal/service"
)

func serveCmd() *cobra.Command {
	var (
		addr        string
		allowOrigin string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and run scheduled maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			r, err := openRepos(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer r.close()

			maint := service.NewMaintenance(r.nodes)
			if err := maint.Start(ctx, cfg.Server.MaintenanceSchedule); err != nil {
				return err
			}
			defer maint.Stop()

			srv := server.New(service.NewNodeService(r.nodes, nil), service.NewBoardService(r.boards, r.nodes, nil))
			srv.AllowOrigin = allowOrigin
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				log.Printf("[API] %v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&allowOrigin, "allow-origin", "", "CORS origin to allow, e.g. * or http://localhost:5173")
	return cmd
}
