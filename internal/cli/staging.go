package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/config"
	"github.com/cperrin88/grabvid/pkg/staging"
)

// NewStagingCmd creates the staging command with subcommands.
func NewStagingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage staging directories",
		Long:  "Show and clean the per-job staging directories under the staging root",
	}

	cmd.AddCommand(
		newStagingInfoCmd(),
		newStagingCleanCmd(),
	)

	return cmd
}

func newStagingInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show staging information",
		Long:  "Display the staging root, the number of job directories and their size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStagingInfo(cmd.OutOrStdout())
		},
	}

	return cmd
}

func newStagingCleanCmd() *cobra.Command {
	var (
		olderThan time.Duration
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale staging directories",
		Long: `Remove job directories older than --older-than (default: staging.stale_after).
--all removes every job directory; do not use it while a server is running.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStagingClean(cmd.OutOrStdout(), olderThan, all)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "minimum age of removed directories")
	cmd.Flags().BoolVar(&all, "all", false, "remove all job directories regardless of age")

	return cmd
}

func runStagingInfo(w io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	info, err := staging.NewManager(cfg.StagingRoot()).Info()
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(w, map[string]any{
			"directory":  info.Directory,
			"jobs":       info.Jobs,
			"total_size": info.TotalSize,
		})
	}

	_, _ = fmt.Fprintf(w, "Staging Directory: %s\n", info.Directory)
	_, _ = fmt.Fprintf(w, "Job Directories: %d\n", info.Jobs)
	_, _ = fmt.Fprintf(w, "Total Size: %s\n", humanize.Bytes(uint64(info.TotalSize)))
	return nil
}

func runStagingClean(w io.Writer, olderThan time.Duration, all bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch {
	case all:
		olderThan = 0
	case olderThan <= 0:
		olderThan = cfg.Staging.StaleAfter
		if olderThan <= 0 {
			olderThan = config.DefaultStaleAfter
		}
	}

	result, err := staging.NewManager(cfg.StagingRoot()).Clean(olderThan)
	if err != nil {
		return err
	}

	logger.Success("Staging cleaning completed", logger.Fields{
		"removed":     result.Removed,
		"total_freed": humanize.Bytes(uint64(result.Freed)),
	})

	if jsonOutput() {
		return printJSON(w, map[string]any{"removed": result.Removed, "freed": result.Freed})
	}
	_, _ = fmt.Fprintf(w, "Removed %d job directories (%s)\n", result.Removed, humanize.Bytes(uint64(result.Freed)))
	return nil
}
