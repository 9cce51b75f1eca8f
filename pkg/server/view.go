package server

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cperrin88/grabvid/pkg/model"
)

type catalogView struct {
	SourceURL string
	Title     string
	Uploader  string
	Duration  string
	Views     string
	Variants  []variantRow
}

type variantRow struct {
	ID        string
	Container string
	Height    string
	FPS       string
	Size      string
	Note      string
}

var templateFuncs = template.FuncMap{
	"upper": strings.ToUpper,
}

func newCatalogView(c *model.VariantCatalog) *catalogView {
	v := &catalogView{
		SourceURL: c.SourceURL,
		Title:     c.Title,
		Variants:  make([]variantRow, 0, len(c.Variants)),
	}
	if c.Uploader != nil {
		v.Uploader = *c.Uploader
	}
	if c.DurationSeconds != nil {
		v.Duration = formatDuration(*c.DurationSeconds)
	}
	if c.ViewCount != nil {
		v.Views = humanize.Comma(*c.ViewCount)
	}
	for _, d := range c.Variants {
		row := variantRow{ID: d.ID, Container: d.Container, Height: "?", Size: "?", Note: d.Note}
		if d.HeightPx != nil {
			row.Height = fmt.Sprintf("%dp", *d.HeightPx)
		}
		if d.FPS != nil {
			row.FPS = strconv.FormatFloat(*d.FPS, 'f', -1, 64)
		}
		if mib, ok := d.SizeMiB(); ok {
			row.Size = fmt.Sprintf("%.2f MiB", mib)
		}
		v.Variants = append(v.Variants, row)
	}
	return v
}

// formatDuration renders seconds as m:ss or h:mm:ss.
func formatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, sec := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
