package variant

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/grabvid/pkg/model"
)

func intPtr(v int) *int           { return &v }
func int64Ptr(v int64) *int64     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestFilter_ProgressiveMP4KeepsMuxedOnly(t *testing.T) {
	formats := []model.RawFormat{
		{FormatID: "22", Ext: "mp4", ACodec: "aac", VCodec: "h264", Height: intPtr(720)},
		{FormatID: "303", Ext: "webm", ACodec: "opus", VCodec: "vp9", Height: intPtr(1080)},
	}

	got := Filter(formats, ProgressiveMP4(5))

	require.Len(t, got, 1)
	assert.Equal(t, "22", got[0].ID)
	assert.Equal(t, "mp4", got[0].Container)
	require.NotNil(t, got[0].HeightPx)
	assert.Equal(t, 720, *got[0].HeightPx)
	assert.True(t, got[0].HasAudio)
	assert.True(t, got[0].HasVideo)
}

func TestFilter_Rules(t *testing.T) {
	tests := []struct {
		name    string
		formats []model.RawFormat
		policy  Policy
		wantIDs []string
	}{
		{
			name:    "empty input",
			formats: nil,
			policy:  ProgressiveMP4(5),
			wantIDs: []string{},
		},
		{
			name: "no match",
			formats: []model.RawFormat{
				{FormatID: "140", Ext: "m4a", ACodec: "mp4a", VCodec: "none"},
			},
			policy:  ProgressiveMP4(5),
			wantIDs: []string{},
		},
		{
			name: "video-only and audio-only rejected",
			formats: []model.RawFormat{
				{FormatID: "137", Ext: "mp4", ACodec: "none", VCodec: "avc1"},
				{FormatID: "139", Ext: "mp4", ACodec: "mp4a", VCodec: "none"},
				{FormatID: "18", Ext: "mp4", ACodec: "mp4a", VCodec: "avc1"},
			},
			policy:  ProgressiveMP4(5),
			wantIDs: []string{"18"},
		},
		{
			name: "unknown codec counts as present",
			formats: []model.RawFormat{
				{FormatID: "hls-1", Ext: "mp4"},
			},
			policy:  ProgressiveMP4(5),
			wantIDs: []string{"hls-1"},
		},
		{
			name: "container match is case-insensitive",
			formats: []model.RawFormat{
				{FormatID: "a", Ext: "MP4", ACodec: "aac", VCodec: "h264"},
			},
			policy:  ProgressiveMP4(5),
			wantIDs: []string{"a"},
		},
		{
			name: "empty and duplicate ids dropped",
			formats: []model.RawFormat{
				{FormatID: "", Ext: "mp4"},
				{FormatID: "18", Ext: "mp4", FormatNote: "first"},
				{FormatID: "18", Ext: "mp4", FormatNote: "second"},
			},
			policy:  ProgressiveMP4(5),
			wantIDs: []string{"18"},
		},
		{
			name: "ineligible duplicate does not shadow a later eligible one",
			formats: []model.RawFormat{
				{FormatID: "x", Ext: "webm"},
				{FormatID: "x", Ext: "mp4"},
			},
			policy:  ProgressiveMP4(5),
			wantIDs: []string{"x"},
		},
		{
			name: "truncated to max results in input order",
			formats: []model.RawFormat{
				{FormatID: "3", Ext: "mp4"},
				{FormatID: "1", Ext: "mp4"},
				{FormatID: "2", Ext: "mp4"},
			},
			policy:  ProgressiveMP4(2),
			wantIDs: []string{"3", "1"},
		},
		{
			name: "zero max results keeps everything",
			formats: []model.RawFormat{
				{FormatID: "1", Ext: "mp4"},
				{FormatID: "2", Ext: "mp4"},
			},
			policy:  ProgressiveMP4(0),
			wantIDs: []string{"1", "2"},
		},
		{
			name: "empty policy accepts any container",
			formats: []model.RawFormat{
				{FormatID: "1", Ext: "webm", VCodec: "none"},
				{FormatID: "2", Ext: "mp4"},
			},
			policy:  Policy{},
			wantIDs: []string{"1", "2"},
		},
		{
			name: "predicate applied after built-in rules",
			formats: []model.RawFormat{
				{FormatID: "18", Ext: "mp4", Height: intPtr(360)},
				{FormatID: "22", Ext: "mp4", Height: intPtr(720)},
			},
			policy: Policy{Container: "mp4", Predicate: func(d model.VariantDescriptor) bool {
				return d.HeightPx != nil && *d.HeightPx >= 720
			}},
			wantIDs: []string{"22"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tt.formats, tt.policy)
			require.NotNil(t, got)
			ids := make([]string, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestDescribe_OptionalFieldsStayAbsent(t *testing.T) {
	d := Describe(model.RawFormat{FormatID: "18", Ext: "mp4"})
	assert.Nil(t, d.HeightPx)
	assert.Nil(t, d.FPS)
	assert.Nil(t, d.ApproxSizeBytes)
}

func TestDescribe_SizeFallsBackToApprox(t *testing.T) {
	exact := Describe(model.RawFormat{FormatID: "a", FileSize: int64Ptr(100), FileSizeApprox: int64Ptr(200)})
	require.NotNil(t, exact.ApproxSizeBytes)
	assert.Equal(t, int64(100), *exact.ApproxSizeBytes)

	approx := Describe(model.RawFormat{FormatID: "b", FileSizeApprox: int64Ptr(200)})
	require.NotNil(t, approx.ApproxSizeBytes)
	assert.Equal(t, int64(200), *approx.ApproxSizeBytes)

	withFPS := Describe(model.RawFormat{FormatID: "c", FPS: floatPtr(29.97), URL: "https://cdn/x"})
	require.NotNil(t, withFPS.FPS)
	assert.InDelta(t, 29.97, *withFPS.FPS, 0.001)
	assert.Equal(t, "https://cdn/x", withFPS.URL)
}

// Randomized check that output only holds matching entries, keeps relative
// order and respects the bound.
func TestFilter_PropertiesRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	exts := []string{"mp4", "webm", "m4a", "MP4", ""}
	codecs := []string{"none", "", "aac", "h264"}

	for round := 0; round < 200; round++ {
		n := rng.Intn(20)
		formats := make([]model.RawFormat, n)
		for i := range formats {
			formats[i] = model.RawFormat{
				FormatID: fmt.Sprintf("%d", rng.Intn(15)),
				Ext:      exts[rng.Intn(len(exts))],
				ACodec:   codecs[rng.Intn(len(codecs))],
				VCodec:   codecs[rng.Intn(len(codecs))],
			}
		}
		maxResults := rng.Intn(6)
		got := Filter(formats, ProgressiveMP4(maxResults))

		if maxResults > 0 {
			assert.LessOrEqual(t, len(got), maxResults)
		}
		seen := map[string]bool{}
		cursor := 0
		for _, d := range got {
			assert.True(t, strings.EqualFold(d.Container, "mp4"))
			assert.True(t, d.HasAudio)
			assert.True(t, d.HasVideo)
			assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
			seen[d.ID] = true

			// relative order: each output id appears in the input after the previous one
			found := false
			for cursor < len(formats) {
				cursor++
				if formats[cursor-1].FormatID == d.ID {
					found = true
					break
				}
			}
			assert.True(t, found, "output order diverges from input order")
		}
	}
}
