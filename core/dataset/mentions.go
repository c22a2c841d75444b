package dataset

import "regexp"

var mentionPattern = regexp.MustCompile(`@[A-Za-z0-9_-]+`)

// ExtractMentions returns every user mention in text in order of appearance.
// Repeated mentions are kept.
func ExtractMentions(text string) []string {
	return mentionPattern.FindAllString(text, -1)
}
