// Package variant reduces the raw format list of an extraction result to the
// variants a caller may pick from.
package variant

import (
	"strings"

	"github.com/cperrin88/grabvid/pkg/model"
)

// codecNone is the codec value the extractor reports for an absent stream.
const codecNone = "none"

// DefaultMaxResults is the number of variants kept by ProgressiveMP4 when no limit is configured.
const DefaultMaxResults = 12

// Predicate is an extra eligibility check applied after the built-in rules.
type Predicate func(model.VariantDescriptor) bool

// Policy controls which formats survive filtering.
type Policy struct {
	// Container is matched case-insensitively against the format extension. Empty matches all.
	Container    string
	RequireAudio bool
	RequireVideo bool
	// MaxResults truncates the output when greater than zero.
	MaxResults int
	Predicate  Predicate
}

// ProgressiveMP4 returns the policy that keeps single-file mp4 variants carrying both streams.
func ProgressiveMP4(maxResults int) Policy {
	return Policy{
		Container:    "mp4",
		RequireAudio: true,
		RequireVideo: true,
		MaxResults:   maxResults,
	}
}

// Filter returns the eligible variants in input order. The first eligible
// entry wins when ids repeat. It never returns nil.
func Filter(formats []model.RawFormat, p Policy) []model.VariantDescriptor {
	out := make([]model.VariantDescriptor, 0, len(formats))
	seen := make(map[string]struct{}, len(formats))

	for _, f := range formats {
		if p.MaxResults > 0 && len(out) >= p.MaxResults {
			break
		}
		if f.FormatID == "" {
			continue
		}
		if _, dup := seen[f.FormatID]; dup {
			continue
		}

		d := Describe(f)
		if p.Container != "" && !strings.EqualFold(d.Container, p.Container) {
			continue
		}
		if p.RequireAudio && !d.HasAudio {
			continue
		}
		if p.RequireVideo && !d.HasVideo {
			continue
		}
		if p.Predicate != nil && !p.Predicate(d) {
			continue
		}
		seen[f.FormatID] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Describe converts a raw format into a descriptor without applying any policy.
func Describe(f model.RawFormat) model.VariantDescriptor {
	d := model.VariantDescriptor{
		ID:        f.FormatID,
		Container: strings.ToLower(f.Ext),
		HasAudio:  hasStream(f.ACodec),
		HasVideo:  hasStream(f.VCodec),
		HeightPx:  f.Height,
		FPS:       f.FPS,
		Note:      f.FormatNote,
		URL:       f.URL,
	}
	if f.FileSize != nil {
		d.ApproxSizeBytes = f.FileSize
	} else {
		d.ApproxSizeBytes = f.FileSizeApprox
	}
	return d
}

// hasStream treats an unknown (empty) codec as present. Only "none" marks absence.
func hasStream(codec string) bool {
	return !strings.EqualFold(codec, codecNone)
}
