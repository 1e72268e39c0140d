package jobs

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	maxFilenameLen     = 96
	maxFallbackSummary = 480
)

var (
	disallowedChars = regexp.MustCompile(`[^a-z0-9\-\s_]`)
	separatorRuns   = regexp.MustCompile(`[\s_]+`)
	hyphenRuns      = regexp.MustCompile(`-+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// sanitizeFilename normalizes a candidate slug for an audio file. The result
// is lower-case ASCII, hyphen-separated, non-empty and at most 96 characters.
// When the candidate reduces to nothing the fallback slug derived from the
// source URL is used instead.
func sanitizeFilename(candidate, sourceURL string) string {
	base := normalizeSlug(candidate)
	if base == "" {
		base = normalizeSlug(fallbackFilename(sourceURL))
	}
	if len(base) > maxFilenameLen {
		base = base[:maxFilenameLen]
	}
	return base
}

// normalizeSlug lower-cases, strips audio extensions and disallowed
// characters, and collapses separators into single hyphens.
func normalizeSlug(s string) string {
	base := strings.ToLower(strings.TrimSpace(s))
	base = strings.TrimSuffix(base, ".mp3")
	base = strings.TrimSuffix(base, ".ogg")
	base = disallowedChars.ReplaceAllString(base, "")
	base = separatorRuns.ReplaceAllString(base, "-")
	base = hyphenRuns.ReplaceAllString(base, "-")
	return strings.Trim(base, "-")
}

// fallbackFilename builds a slug from the URL host plus a UTC timestamp,
// used when the language model produced nothing usable.
func fallbackFilename(sourceURL string) string {
	host := "audio"
	if parsed, err := url.Parse(sourceURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return host + "-" + ts
}

// fallbackSummary reduces article content to a whitespace-collapsed excerpt
// when summarization fails.
func fallbackSummary(content string) string {
	text := strings.TrimSpace(whitespaceRuns.ReplaceAllString(content, " "))
	if text == "" {
		return "No summary available."
	}
	if len(text) > maxFallbackSummary {
		text = text[:maxFallbackSummary]
	}
	return text
}

// truncateError keeps event log messages diagnosable without storing
// unbounded error text.
func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
