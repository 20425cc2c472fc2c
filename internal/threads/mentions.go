package threads

import (
	"regexp"
	"strings"
)

var (
	trailingMentionRe = regexp.MustCompile(`@(\w*)$`)
	mentionRe         = regexp.MustCompile(`@(\w+)`)
)

// Member is a directory entry mention suggestions draw from.
type Member struct {
	ID   string
	Name string
}

// ActiveMentionQuery reports whether the input ends in an in-progress
// mention token and returns the partial name typed so far (may be empty,
// right after the "@").
func ActiveMentionQuery(input string) (string, bool) {
	m := trailingMentionRe.FindStringSubmatch(input)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Suggest prefix-filters the team directory against the partial query,
// case-insensitively. An empty query matches everyone.
func Suggest(query string, directory []Member) []Member {
	q := strings.ToLower(query)
	out := make([]Member, 0, len(directory))
	for _, m := range directory {
		if strings.HasPrefix(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}

// Accept replaces the trailing mention token with the chosen name plus a
// trailing space so composition can continue. Input without an active token
// is returned unchanged.
func Accept(input, name string) string {
	if _, ok := ActiveMentionQuery(input); !ok {
		return input
	}
	return trailingMentionRe.ReplaceAllString(input, "@"+name+" ")
}

// Extract returns every completed @mention token in a body, for
// persistence on the created comment.
func Extract(body string) []string {
	matches := mentionRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
