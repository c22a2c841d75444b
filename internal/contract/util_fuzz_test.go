package contract

import (
	"testing"
	"unicode/utf8"
)

// FuzzTruncatePath checks that truncated paths never exceed the width and keep their suffix.
func FuzzTruncatePath(f *testing.F) {
	seeds := []struct {
		path  string
		width int
	}{
		{"src/Mvc/Controllers/HomeController.cs", 20},
		{"a.cs", 10},
		{"", 5},
		{"very/long/path/to/file.txt", 4},
		{"unicode/ñandú/ファイル.go", 8},
	}
	for _, seed := range seeds {
		f.Add(seed.path, seed.width)
	}

	f.Fuzz(func(t *testing.T, path string, width int) {
		if !utf8.ValidString(path) || width < 0 || width > 1000 {
			return
		}
		got := TruncatePath(path, width)
		runes := utf8.RuneCountInString(path)
		if runes <= width || width <= 3 {
			if got != path {
				t.Fatalf("TruncatePath(%q, %d) = %q, want unchanged", path, width, got)
			}
			return
		}
		if n := utf8.RuneCountInString(got); n != width {
			t.Fatalf("TruncatePath(%q, %d) has %d runes", path, width, n)
		}
	})
}
