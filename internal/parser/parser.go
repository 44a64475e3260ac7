// Package parser turns pasted channel lists into classified entries.
package parser

import (
	"regexp"
	"strings"

	"github.com/kapu/multistream-checker-go/internal/domain"
)

var lineSplit = regexp.MustCompile(`\r?\n`)

// artifactSuffixes are stray strings that browser consoles append when a value is copied out of a log line.
var artifactSuffixes = []string{"[object Object]", "undefined"}

// Parse splits text into entries in input order. Duplicate lines are kept as separate entries.
func Parse(text string) []domain.ParsedEntry {
	lines := lineSplit.Split(text, -1)
	entries := make([]domain.ParsedEntry, 0, len(lines))
	for _, line := range lines {
		entry, ok := ParseLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// ParseLine parses a single line. ok is false for blank lines and # comments.
func ParseLine(line string) (domain.ParsedEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return domain.ParsedEntry{}, false
	}

	nickname, url := trimmed, trimmed
	if idx := strings.Index(trimmed, ","); idx >= 0 {
		nickname = strings.TrimSpace(trimmed[:idx])
		url = strings.TrimSpace(trimmed[idx+1:])
	}

	url = CleanURL(url)

	return domain.ParsedEntry{
		Nickname: nickname,
		URL:      url,
		Platform: Classify(url),
	}, true
}

// CleanURL strips copy-paste artifacts and trailing words after an absolute URL.
func CleanURL(url string) string {
	url = strings.TrimSpace(url)
	for _, suffix := range artifactSuffixes {
		if len(url) > len(suffix) && strings.HasSuffix(url, suffix) {
			url = strings.TrimSpace(strings.TrimSuffix(url, suffix))
		}
	}

	fields := strings.Fields(url)
	if len(fields) > 1 && isAbsoluteURL(fields[0]) {
		return fields[0]
	}
	return url
}

// Classify picks the first platform whose domain fragment occurs in s, in fixed precedence order.
func Classify(s string) domain.Platform {
	lower := strings.ToLower(s)
	for _, p := range domain.KnownPlatforms {
		for _, fragment := range p.DomainFragments() {
			if strings.Contains(lower, fragment) {
				return p
			}
		}
	}
	return domain.PlatformUnknown
}

func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
