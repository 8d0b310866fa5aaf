package delivery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/user/mediagate/internal/types"
)

const maxStemLen = 50

var (
	hostileRun    = regexp.MustCompile(`[\\/:*?"<>|\s]+`)
	disallowed    = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)
	underscoreRun = regexp.MustCompile(`_{2,}`)
)

// SafeStem turns a media title into a filesystem-safe stem, preserving case.
// Runs of path-hostile characters and whitespace become one underscore, other
// non-alphanumerics are dropped, and the result is capped at 50 characters.
func SafeStem(title string) string {
	s := hostileRun.ReplaceAllString(title, "_")
	s = disallowed.ReplaceAllString(s, "")
	s = underscoreRun.ReplaceAllString(s, "_")
	if len(s) > maxStemLen {
		s = s[:maxStemLen]
	}
	s = strings.Trim(s, "_.")
	if s == "" {
		return "media"
	}
	return s
}

// Filename derives the artifact filename for a selection:
// <stem>_<index><ext>, with the extension chosen by kind.
func Filename(title string, index int, kind types.MediaKind) string {
	return SafeStem(title) + "_" + strconv.Itoa(index) + kind.Extension()
}
