// Package model provides the data structures shared by the fetch, cache and
// download pipeline: raw extractor output, filtered variant catalogs and
// download jobs.
package model

import (
	"fmt"
	"strings"
	"time"
)

// RawFormat is one stream record as reported by the extractor.
// VCodec and ACodec are empty when unknown and "none" when the stream is explicitly absent.
type RawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	ACodec         string   `json:"acodec,omitempty"`
	VCodec         string   `json:"vcodec,omitempty"`
	Height         *int     `json:"height,omitempty"`
	FPS            *float64 `json:"fps,omitempty"`
	FileSize       *int64   `json:"filesize,omitempty"`
	FileSizeApprox *int64   `json:"filesize_approx,omitempty"`
	FormatNote     string   `json:"format_note,omitempty"`
	URL            string   `json:"url,omitempty"`
	Protocol       string   `json:"protocol,omitempty"`
}

// MediaInfo is the raw extraction result for one source URL.
type MediaInfo struct {
	Title           string      `json:"title"`
	Uploader        *string     `json:"uploader,omitempty"`
	DurationSeconds *int        `json:"duration,omitempty"`
	ViewCount       *int64      `json:"view_count,omitempty"`
	WebpageURL      string      `json:"webpage_url,omitempty"`
	Formats         []RawFormat `json:"formats"`
}

// VariantDescriptor describes one selectable encoded variant.
type VariantDescriptor struct {
	ID              string   `json:"id"`
	Container       string   `json:"container"`
	HasAudio        bool     `json:"has_audio"`
	HasVideo        bool     `json:"has_video"`
	HeightPx        *int     `json:"height,omitempty"`
	FPS             *float64 `json:"fps,omitempty"`
	ApproxSizeBytes *int64   `json:"approx_size_bytes,omitempty"`
	Note            string   `json:"note,omitempty"`
	// URL is the direct media URL. It is used by the HTTP executor and never rendered.
	URL string `json:"-"`
}

const bytesPerMiB = 1024 * 1024

// SizeMiB returns the approximate size in MiB rounded to two decimals.
// ok is false when the size is unknown.
func (v VariantDescriptor) SizeMiB() (mib float64, ok bool) {
	if v.ApproxSizeBytes == nil {
		return 0, false
	}
	raw := float64(*v.ApproxSizeBytes) / bytesPerMiB
	return float64(int64(raw*100+0.5)) / 100, true
}

// Label renders a one-line human description of the variant.
func (v VariantDescriptor) Label() string {
	parts := []string{v.ID, v.Container}
	if v.HeightPx != nil {
		parts = append(parts, fmt.Sprintf("%dp", *v.HeightPx))
	}
	if v.FPS != nil {
		parts = append(parts, fmt.Sprintf("%gfps", *v.FPS))
	}
	if mib, ok := v.SizeMiB(); ok {
		parts = append(parts, fmt.Sprintf("%.2f MiB", mib))
	}
	if v.Note != "" {
		parts = append(parts, "("+v.Note+")")
	}
	return strings.Join(parts, " ")
}

// VariantCatalog is the filtered, immutable result of a metadata fetch.
// An empty Variants slice is a valid catalog and is distinct from a fetch error.
type VariantCatalog struct {
	SourceURL       string              `json:"source_url"`
	Title           string              `json:"title"`
	Uploader        *string             `json:"uploader,omitempty"`
	DurationSeconds *int                `json:"duration,omitempty"`
	ViewCount       *int64              `json:"view_count,omitempty"`
	Variants        []VariantDescriptor `json:"variants"`
	FetchedAt       time.Time           `json:"fetched_at"`
}

// Variant looks up a variant by id.
func (c *VariantCatalog) Variant(id string) (*VariantDescriptor, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Variants {
		if c.Variants[i].ID == id {
			v := c.Variants[i]
			return &v, true
		}
	}
	return nil, false
}

// DownloadRequest is what the pipeline hands to a download executor.
type DownloadRequest struct {
	URL       string
	VariantID string
	// Dir is the staging directory the executor must write into.
	Dir   string
	Title string
	// Variant is a hint from the catalog and may be nil.
	Variant *VariantDescriptor
}
