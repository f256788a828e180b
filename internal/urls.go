package internal

import (
	"net/url"
	"regexp"
	"strings"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

var (
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	videoIDChars     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// VideoReference is the resolved form of whatever the user typed into the URL field.
type VideoReference struct {
	Raw string // exactly what the user entered
	URL string // canonical watch URL, or Raw when it could not be canonicalized
	ID  string
}

// ResolveVideo builds a VideoReference from raw user input. It returns
// ErrInvalidURL when no video identifier can be extracted or the identifier
// has characters a YouTube ID never has. The ID ends up in file names.
func ResolveVideo(raw string) (VideoReference, error) {
	raw = strings.TrimSpace(raw)
	normalized := NormalizeURL(raw)

	// the ID must name the same video the canonical URL points at
	id, ok := strings.CutPrefix(normalized, watchURLPrefix)
	if !ok {
		id, ok = ExtractVideoID(raw)
	}
	if !ok || !IsSafeVideoID(id) {
		return VideoReference{Raw: raw}, Wrap(ErrInvalidURL, raw, nil)
	}
	return VideoReference{
		Raw: raw,
		URL: normalized,
		ID:  id,
	}, nil
}

// NormalizeURL canonicalizes a YouTube URL to https://www.youtube.com/watch?v=<id>.
// Inputs it does not understand are returned unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	// first non-empty v wins
	for _, v := range u.Query()["v"] {
		if v != "" {
			return watchURLPrefix + v
		}
	}

	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" || host == "www.youtu.be" {
		if id := strings.TrimLeft(u.Path, "/"); id != "" {
			return watchURLPrefix + id
		}
	}

	return raw
}

// ExtractVideoID pulls the bare video identifier out of a short or canonical URL.
// The boolean is false when neither form is recognized.
func ExtractVideoID(raw string) (string, bool) {
	var rest string
	switch {
	case strings.Contains(raw, "youtu.be/"):
		rest = raw[strings.Index(raw, "youtu.be/")+len("youtu.be/"):]
	case strings.Contains(raw, "v="):
		rest = raw[strings.LastIndex(raw, "v=")+len("v="):]
	default:
		return "", false
	}

	if i := strings.IndexAny(rest, "&?"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", false
	}
	return rest, true
}

// ParseArg accepts either a URL or a bare video ID from the command line and
// returns the URL to fetch along with the video ID. Unrecognized input comes
// back unchanged with an empty ID.
func ParseArg(arg string) (string, string) {
	arg = strings.TrimSpace(arg)
	if IsValidYouTubeID(arg) {
		return watchURLPrefix + arg, arg
	}
	if ref, err := ResolveVideo(arg); err == nil {
		return ref.URL, ref.ID
	}
	return arg, ""
}

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	return youtubeIDPattern.MatchString(id)
}

// IsSafeVideoID reports whether id only uses the YouTube ID alphabet, so it is
// safe to use as a file name
func IsSafeVideoID(id string) bool {
	return videoIDChars.MatchString(id)
}
