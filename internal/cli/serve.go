package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		Long: `Serve the URL form, the variant table and the download endpoint.
Stale staging directories are swept at startup and then every server.sweep_interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")

	return cmd
}

func runServe(ctx context.Context, listen string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(a.service, server.Options{
		Listen:            cfg.Server.Listen,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	})
	if err != nil {
		return err
	}

	go a.staging.Sweep(ctx, cfg.Server.SweepInterval, cfg.Staging.StaleAfter)

	logger.Info("starting grabvid", logger.Fields{
		"listen":  cfg.Server.Listen,
		"backend": cfg.Extractor.DownloadBackend,
		"staging": a.staging.Root(),
	})
	return srv.Run(ctx)
}
