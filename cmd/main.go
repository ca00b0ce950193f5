package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "enclosure_gateway/internal/docs"

	"github.com/spf13/cobra"
)

// @title           Enclosure Gateway API
// @version         1.0
// @description     Telemetry, commands and audit log of the enclosure controller.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "enclosured",
		Short:         "Gateway between the enclosure controller and its operators",
		SilenceUsage:  true,
		SilenceErrors: true,
		// serve is the default action
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default configs/config.yml)")

	root.AddCommand(newServeCmd(&configPath), newReplayCmd())
	return root
}
