package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/fsutil"
	"github.com/cperrin88/grabvid/pkg/pipeline"
)

type downloadOptions struct {
	format string
	dir    string
	force  bool
}

// NewDownloadCmd creates the download command.
func NewDownloadCmd() *cobra.Command {
	opts := downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download one variant of a video",
		Long: `Download the variant selected with --format into --dir.
Use "grabvid info URL" to list the available format ids.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "format id to download (required)")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", DefaultDownloadDir, "destination directory")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing file")
	_ = cmd.MarkFlagRequired("format")

	return cmd
}

func runDownload(ctx context.Context, w io.Writer, url string, opts downloadOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.dir, fsutil.DirModeDefault); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	var target string
	err = a.service.WithDownload(ctx, url, opts.format, func(dl *pipeline.Download) error {
		dest := filepath.Join(opts.dir, dl.Name())
		if _, err := os.Stat(dest); err == nil && !opts.force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
		}
		if err := fsutil.Move(dl.FilePath, dest); err != nil {
			return fmt.Errorf("failed to move %s to %s: %w", dl.Name(), opts.dir, err)
		}
		target = dest
		return nil
	})
	if err != nil {
		return err
	}

	fields := logger.Fields{"path": target}
	if info, statErr := os.Stat(target); statErr == nil {
		fields["size"] = humanize.Bytes(uint64(info.Size()))
	}
	logger.Success("Download complete", fields)

	if jsonOutput() {
		return printJSON(w, map[string]string{"path": target})
	}
	_, _ = fmt.Fprintln(w, target)
	return nil
}
