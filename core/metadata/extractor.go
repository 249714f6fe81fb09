// Package metadata reads tags and technical properties from audio files.
package metadata

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.senan.xyz/taglib"
)

// Field length bounds applied to extracted tag values.
const (
	maxTitleLen  = 2000
	maxNameLen   = 1000
	maxFormatLen = 50
)

// TrackMetadata is the structured result of reading one audio file.
type TrackMetadata struct {
	Title       string
	Artist      string
	AlbumArtist string // defaults to Artist when the tag is absent
	Album       string
	Length      int    // seconds
	Bitrate     int    // kbps
	Format      string // encoding format label
	VBR         bool
	Year        *int // nil when the tag is absent or non-numeric
}

// ExtractionError reports an unreadable, unsupported or corrupt audio file.
// It is non-fatal to a scan: the caller logs it and skips the file.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract metadata from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor reads metadata from a single audio file.
type Extractor interface {
	Extract(path string) (*TrackMetadata, error)
}

// TagLibExtractor extracts metadata using the taglib bindings.
type TagLibExtractor struct{}

// NewTagLibExtractor creates the default extractor.
func NewTagLibExtractor() *TagLibExtractor {
	return &TagLibExtractor{}
}

// Extract reads tags and audio properties from the file at path. Missing
// tags yield empty fields rather than an error; an unreadable or corrupt
// file yields an *ExtractionError.
func (e *TagLibExtractor) Extract(path string) (*TrackMetadata, error) {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	md := &TrackMetadata{
		Title:       abbreviate(firstTagValue(tags, taglib.Title, "TITLE"), maxTitleLen),
		Artist:      abbreviate(firstTagValue(tags, taglib.Artist, "ARTIST"), maxNameLen),
		AlbumArtist: abbreviate(firstTagValue(tags, taglib.AlbumArtist, "ALBUMARTIST"), maxNameLen),
		Album:       abbreviate(firstTagValue(tags, taglib.Album, "ALBUM"), maxNameLen),
		Length:      int(props.Length.Seconds()),
		Bitrate:     int(props.Bitrate),
	}
	if md.AlbumArtist == "" {
		md.AlbumArtist = md.Artist
	}

	md.Format = abbreviate(formatLabel(tags, path), maxFormatLen)
	// The tag reader does not expose the encoder's VBR flag, so it is
	// derived from the codec family.
	md.VBR = isVBRFormat(md.Format)
	md.Year = parseYear(firstTagValue(tags, taglib.Date, "DATE", "YEAR"))

	return md, nil
}

// firstTagValue returns the first non-blank value among the given tag keys.
func firstTagValue(tags map[string][]string, keys ...string) string {
	for _, key := range keys {
		for _, value := range tags[key] {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// abbreviate truncates s to at most max runes.
func abbreviate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// parseYear parses a year tag. A non-numeric value (including full dates
// like "2004-06-01") is treated as absent, matching strict integer parsing.
func parseYear(value string) *int {
	if value == "" {
		return nil
	}
	year, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &year
}

// formatLabel derives the encoding format label from the FILETYPE tag,
// falling back to the file extension.
func formatLabel(tags map[string][]string, path string) string {
	if label := firstTagValue(tags, taglib.FileType, "FILETYPE"); label != "" {
		return strings.ToUpper(label)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return strings.ToUpper(ext)
}

// Codec families that are always variable-bitrate.
var vbrFormats = map[string]bool{
	"FLAC":   true,
	"ALAC":   true,
	"OGG":    true,
	"VORBIS": true,
	"OPUS":   true,
	"APE":    true,
	"WV":     true,
}

func isVBRFormat(format string) bool {
	return vbrFormats[strings.ToUpper(format)]
}
