package watcher

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FileMeta is what a filename alone can tell us about a transcript
type FileMeta struct {
	Title    string
	CallDate time.Time
}

var (
	isoDatePattern     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	compactDatePattern = regexp.MustCompile(`\b(20\d{2})(\d{2})(\d{2})\b`)
)

// ParseFilename extracts a call date and a human title from a
// transcript filename. Recording tools commonly embed an ISO or
// compact date; the rest of the name becomes the title.
func ParseFilename(name string) FileMeta {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	meta := FileMeta{}

	if m := isoDatePattern.FindStringSubmatch(base); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			meta.CallDate = t
			base = strings.Replace(base, m[0], "", 1)
		}
	} else if m := compactDatePattern.FindStringSubmatch(base); m != nil {
		if t, err := time.Parse("20060102", m[0]); err == nil {
			meta.CallDate = t
			base = strings.Replace(base, m[0], "", 1)
		}
	}

	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	meta.Title = strings.TrimSpace(base)

	return meta
}
