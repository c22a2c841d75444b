package dataset

import (
	"strings"
	"testing"
)

// FuzzExtractMentions fuzzes ExtractMentions with random text.
func FuzzExtractMentions(f *testing.F) {
	seeds := []string{
		"cc @alice and @bob",
		"email me at a@b.com",
		"@@double",
		"",
		"@",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, text string) {
		for _, m := range ExtractMentions(text) {
			if !strings.HasPrefix(m, "@") || len(m) < 2 {
				t.Errorf("ExtractMentions(%q) returned %q", text, m)
			}
			if !strings.Contains(text, m) {
				t.Errorf("ExtractMentions(%q) returned %q not present in text", text, m)
			}
		}
	})
}
