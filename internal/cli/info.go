package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cperrin88/grabvid/internal/logger"
	"github.com/cperrin88/grabvid/pkg/model"
)

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info URL",
		Short: "Show video metadata and downloadable variants",
		Long:  "Fetch metadata for URL and list the variants that pass the configured filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	return cmd
}

func runInfo(ctx context.Context, w io.Writer, url string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	catalog, err := a.service.FetchVariants(ctx, url)
	if err != nil {
		return err
	}

	if len(catalog.Variants) == 0 {
		logger.Warn("No progressive variant matches the filter", logger.Fields{
			"url":       catalog.SourceURL,
			"container": cfg.Filter.Container,
		})
	}

	if jsonOutput() {
		return printJSON(w, catalog)
	}
	return printCatalog(w, catalog)
}

func printCatalog(w io.Writer, c *model.VariantCatalog) error {
	_, _ = fmt.Fprintf(w, "Title:    %s\n", c.Title)
	if c.Uploader != nil {
		_, _ = fmt.Fprintf(w, "Uploader: %s\n", *c.Uploader)
	}
	if c.DurationSeconds != nil {
		_, _ = fmt.Fprintf(w, "Duration: %s\n", time.Duration(*c.DurationSeconds)*time.Second)
	}
	if c.ViewCount != nil {
		_, _ = fmt.Fprintf(w, "Views:    %s\n", humanize.Comma(*c.ViewCount))
	}

	if len(c.Variants) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(w)
	tabWriter := tabwriter.NewWriter(w, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "ID\tTYPE\tRESOLUTION\tFPS\tSIZE\tNOTE")
	for _, v := range c.Variants {
		height, fps, size := "?", "", "?"
		if v.HeightPx != nil {
			height = fmt.Sprintf("%dp", *v.HeightPx)
		}
		if v.FPS != nil {
			fps = strconv.FormatFloat(*v.FPS, 'f', -1, 64)
		}
		if mib, ok := v.SizeMiB(); ok {
			size = fmt.Sprintf("%.2f MiB", mib)
		}
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\t%s\t%s\n", v.ID, v.Container, height, fps, size, v.Note)
	}
	return tabWriter.Flush()
}
