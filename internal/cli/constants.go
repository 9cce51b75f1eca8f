package cli

// Default values for CLI flags and output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// DefaultDownloadDir is where `download` places finished files.
	DefaultDownloadDir = "."
	// OutputJSON selects machine-readable output.
	OutputJSON = "json"
	// OutputText selects human-readable output.
	OutputText = "text"
)
