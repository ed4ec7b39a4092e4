package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "canvasboard/internal/mcp"
	"canvasboard/internal/service"
)

func mcpCmd() *cobra.Command {
	var allowDestructive bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve board tools to an MCP client on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			log.SetOutput(os.Stderr)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			r, err := openRepos(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			defer r.close()

			srv := mcpserver.New(mcpserver.Deps{
				Nodes:            service.NewNodeService(r.nodes, nil),
				Boards:           service.NewBoardService(r.boards, r.nodes, nil),
				AllowDestructive: allowDestructive,
			})
			log.Println("[MCP] Starting stdio server...")
			return srv.ServeStdio()
		},
	}
	cmd.Flags().BoolVar(&allowDestructive, "allow-destructive", false, "let tools delete nodes without confirmation")
	return cmd
}
