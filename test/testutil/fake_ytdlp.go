// Package testutil builds stand-ins for external tools used in tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// FakeYtDlp describes the behavior of a fake yt-dlp executable.
type FakeYtDlp struct {
	// Version is printed for --version.
	Version string
	// DumpJSON is printed for --dump-single-json.
	DumpJSON string
	// OutputName is created inside the -o directory on download and its path printed.
	OutputName string
	// Stdout is printed verbatim before the download path.
	Stdout   string
	Stderr   string
	ExitCode int
	// Sleep replaces the process with a sleep of this length.
	Sleep time.Duration
}

// Install writes the fake into a temp dir and returns the executable path and
// the file that receives the arguments of the last invocation, one per line.
func (f FakeYtDlp) Install(t *testing.T) (binary, argsFile string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp needs a POSIX shell")
	}

	dir := t.TempDir()
	binary = filepath.Join(dir, "yt-dlp")
	argsFile = filepath.Join(dir, "args.txt")

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&b, "printf '%%s\\n' \"$@\" > %s\n", shellQuote(argsFile))
	if f.Sleep > 0 {
		fmt.Fprintf(&b, "exec sleep %d\n", int(f.Sleep.Seconds()+0.5))
	}
	if f.Version != "" {
		fmt.Fprintf(&b, "if [ \"$1\" = \"--version\" ]; then echo %s; exit 0; fi\n", shellQuote(f.Version))
	}
	if f.Stderr != "" {
		fmt.Fprintf(&b, "printf '%%s\\n' %s >&2\n", shellQuote(f.Stderr))
	}
	if f.ExitCode != 0 {
		fmt.Fprintf(&b, "exit %d\n", f.ExitCode)
	}
	if f.DumpJSON != "" {
		b.WriteString("for a in \"$@\"; do\n")
		fmt.Fprintf(&b, "  if [ \"$a\" = \"--dump-single-json\" ]; then printf '%%s\\n' %s; exit 0; fi\n", shellQuote(f.DumpJSON))
		b.WriteString("done\n")
	}
	if f.Stdout != "" {
		fmt.Fprintf(&b, "printf '%%s\\n' %s\n", shellQuote(f.Stdout))
	}
	if f.OutputName != "" {
		b.WriteString("out=''\nprev=''\n")
		b.WriteString("for a in \"$@\"; do\n  if [ \"$prev\" = \"-o\" ]; then out=\"$a\"; fi\n  prev=\"$a\"\ndone\n")
		b.WriteString("dir=$(dirname \"$out\")\n")
		fmt.Fprintf(&b, "printf 'media' > \"$dir/\"%s\n", shellQuote(f.OutputName))
		fmt.Fprintf(&b, "echo \"$dir/\"%s\n", shellQuote(f.OutputName))
	}
	b.WriteString("exit 0\n")

	if err := os.WriteFile(binary, []byte(b.String()), 0o755); err != nil {
		t.Fatalf("failed to write fake yt-dlp: %v", err)
	}
	return binary, argsFile
}

// ReadArgs returns the arguments recorded by the last invocation.
func ReadArgs(t *testing.T, argsFile string) []string {
	t.Helper()
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("failed to read recorded args: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
