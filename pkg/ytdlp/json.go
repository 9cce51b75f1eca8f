package ytdlp

import (
	"math"

	"github.com/cperrin88/grabvid/pkg/model"
)

// rawFormat mirrors the subset of yt-dlp's format dict that grabvid reads.
// Numbers are decoded as floats because yt-dlp emits both forms.
type rawFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	ACodec         *string  `json:"acodec"`
	VCodec         *string  `json:"vcodec"`
	Height         *float64 `json:"height"`
	FPS            *float64 `json:"fps"`
	FileSize       *float64 `json:"filesize"`
	FileSizeApprox *float64 `json:"filesize_approx"`
	FormatNote     string   `json:"format_note"`
	URL            string   `json:"url"`
	Protocol       string   `json:"protocol"`
}

// rawInfo is the info dict. Single-file sources carry their only format at the top level.
type rawInfo struct {
	rawFormat
	Title      string      `json:"title"`
	Uploader   *string     `json:"uploader"`
	Duration   *float64    `json:"duration"`
	ViewCount  *float64    `json:"view_count"`
	WebpageURL string      `json:"webpage_url"`
	Formats    []rawFormat `json:"formats"`
}

func (r rawInfo) toModel() *model.MediaInfo {
	info := &model.MediaInfo{
		Title:           r.Title,
		Uploader:        r.Uploader,
		DurationSeconds: roundInt(r.Duration),
		ViewCount:       roundInt64(r.ViewCount),
		WebpageURL:      r.WebpageURL,
		Formats:         make([]model.RawFormat, 0, len(r.Formats)),
	}
	formats := r.Formats
	if len(formats) == 0 && r.FormatID != "" {
		formats = []rawFormat{r.rawFormat}
	}
	for _, f := range formats {
		info.Formats = append(info.Formats, f.toModel())
	}
	return info
}

func (f rawFormat) toModel() model.RawFormat {
	return model.RawFormat{
		FormatID:       f.FormatID,
		Ext:            f.Ext,
		ACodec:         deref(f.ACodec),
		VCodec:         deref(f.VCodec),
		Height:         roundInt(f.Height),
		FPS:            f.FPS,
		FileSize:       roundInt64(f.FileSize),
		FileSizeApprox: roundInt64(f.FileSizeApprox),
		FormatNote:     f.FormatNote,
		URL:            f.URL,
		Protocol:       f.Protocol,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func roundInt(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(math.Round(*f))
	return &v
}

func roundInt64(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(math.Round(*f))
	return &v
}
