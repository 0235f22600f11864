package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notesync/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API, web view and MCP endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Context for startup
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		a, err := app.Open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		srv := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      a.Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logger.Info("shutting down server...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown error", "error", err)
			}
		}()

		logger.Info("server starting", "port", cfg.Port, "refresh_policy", cfg.RefreshPolicy.String())
		logger.Info("endpoints available",
			"web", "http://localhost:"+cfg.Port,
			"api", "http://localhost:"+cfg.Port+"/api",
			"mcp", "http://localhost:"+cfg.Port+"/mcp",
		)

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP port (env PORT)")
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}
