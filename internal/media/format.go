package media

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/user/mediagate/internal/types"
)

// FormatDuration renders seconds as "[<h>h ][<m>m ]<s>s".
func FormatDuration(secs float64) string {
	if secs < 0 || math.IsNaN(secs) {
		secs = 0
	}
	total := int64(secs)
	sec := total % 60
	min := (total / 60) % 60
	hr := total / 3600

	var sb strings.Builder
	if hr > 0 {
		fmt.Fprintf(&sb, "%dh ", hr)
	}
	if min > 0 {
		fmt.Fprintf(&sb, "%dm ", min)
	}
	fmt.Fprintf(&sb, "%ds", sec)
	return sb.String()
}

// FormatUptime renders an elapsed duration for /uptime.
func FormatUptime(d time.Duration) string {
	return FormatDuration(d.Seconds())
}

const placeholder = "N/A"

// Caption is the description shown above the variant buttons. Missing
// metadata is shown as N/A.
func Caption(set *types.MediaSet) string {
	return fmt.Sprintf("Title: %s\nSource: %s\nAuthor: %s\nDuration: %s",
		orPlaceholder(set.Title), orPlaceholder(set.Source), orPlaceholder(set.Author),
		FormatDuration(set.DurationSeconds))
}

func orPlaceholder(s string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// VariantLabel is the button text for a variant, e.g. "VIDEO - 720p".
func VariantLabel(v types.MediaVariant) string {
	quality := v.Quality
	if quality == "" {
		quality = "Audio"
	}
	kind := v.RawType
	if kind == "" {
		kind = string(v.Kind)
	}
	return strings.ToUpper(kind) + " - " + quality
}
