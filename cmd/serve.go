package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxvaer/cmsid/internal/server"
	"github.com/maxvaer/cmsid/internal/signature"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP scan API",
	Long: `serve exposes the scan engine over HTTP:

  GET  /healthz      liveness probe
  GET  /signatures   the loaded signature table
  POST /scan         {"urls": [...], "spoof_ua": bool} -> {"id", "results"}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if opts.Timeout <= 0 {
			return fmt.Errorf("--timeout must be positive")
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		rules, err := signature.Load(ctx, opts.SignaturesPath)
		if err != nil {
			return fmt.Errorf("loading signatures: %w", err)
		}
		rules = rules.Filter(opts.CMSNames)

		srv, err := server.NewServer(server.Config{
			ListenAddr: listenAddr,
			Options:    &opts,
			Rules:      rules,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		httpSrv := srv.HTTPServer()

		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", listenAddr).WithField("rules", len(rules)).Info("listening")
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
}
