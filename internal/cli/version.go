package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cperrin88/grabvid/pkg/ytdlp"
)

// Build information, overridden with -ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for grabvid and the installed yt-dlp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, cmd.OutOrStdout())
		},
	}

	return cmd
}

func runVersion(cmd *cobra.Command, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "grabvid version %s\n", Version)
	_, _ = fmt.Fprintf(w, "Build date: %s\n", BuildDate)
	_, _ = fmt.Fprintf(w, "Git commit: %s\n", GitCommit)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := ytdlp.New(ytdlp.Options{Binary: cfg.Extractor.Binary})
	v, err := client.Version(cmd.Context())
	if err != nil {
		_, _ = fmt.Fprintf(w, "yt-dlp: not available (%v)\n", err)
		return nil
	}
	_, _ = fmt.Fprintf(w, "yt-dlp version %s (%s)\n", v.Original(), client.Binary())
	return nil
}
