// Package resolver converts external content references (ISBNs, IMDb
// URLs, Spotify URLs) into normalized detail records.
package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/acstiles/media-preloader/internal/preload"
)

var (
	imdbIDPattern    = regexp.MustCompile(`title/(tt\d+)`)
	spotifyPattern   = regexp.MustCompile(`/(track|album|artist|playlist)/([0-9A-Za-z]+)`)
	isbnCleanPattern = regexp.MustCompile(`[\s-]`)
	isbnPattern      = regexp.MustCompile(`^\d{9,12}[\dXx]$`)
	yearPattern      = regexp.MustCompile(`\b(\d{4})\b`)
)

// ParseIMDB extracts the tt identifier from an IMDb title URL.
func ParseIMDB(raw string) (string, error) {
	m := imdbIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", &preload.InvalidReferenceError{Ref: raw, Reason: "no IMDb title id"}
	}
	return m[1], nil
}

// SpotifyRef is the parsed form of a Spotify resource URL.
type SpotifyRef struct {
	Type string
	ID   string
}

// ParseSpotify extracts the resource type and id from a Spotify URL.
func ParseSpotify(raw string) (SpotifyRef, error) {
	m := spotifyPattern.FindStringSubmatch(raw)
	if m == nil {
		return SpotifyRef{}, &preload.InvalidReferenceError{Ref: raw, Reason: "no Spotify resource path"}
	}
	return SpotifyRef{Type: m[1], ID: m[2]}, nil
}

// ParseISBN normalizes a bare ISBN-10/13, stripping separators.
func ParseISBN(raw string) (string, error) {
	cleaned := isbnCleanPattern.ReplaceAllString(strings.TrimSpace(raw), "")
	if !isbnPattern.MatchString(cleaned) {
		return "", &preload.InvalidReferenceError{Ref: raw, Reason: "not an ISBN"}
	}
	return strings.ToUpper(cleaned), nil
}

// yearFrom pulls the first four-digit year out of a free-form date
// string, returning 0 when none is present.
func yearFrom(date string) int {
	m := yearPattern.FindStringSubmatch(date)
	if m == nil {
		return 0
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return y
}

// sampleKey derives the static-sample lookup key for a reference. A
// malformed reference yields an empty key, which matches nothing.
func sampleKey(ref preload.Reference) string {
	switch ref.Kind {
	case preload.RefISBN:
		key, err := ParseISBN(ref.Value)
		if err != nil {
			return ""
		}
		return key
	case preload.RefIMDB:
		key, err := ParseIMDB(ref.Value)
		if err != nil {
			return ""
		}
		return key
	case preload.RefSpotify:
		parsed, err := ParseSpotify(ref.Value)
		if err != nil {
			return ""
		}
		return parsed.ID
	}
	return ""
}
