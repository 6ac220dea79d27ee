package havewecrashedyet

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	return u.String()
}

// FormatChangePercent renders a snapshot's change for humans.
func FormatChangePercent(snap Snapshot) string {
	if !snap.HasChange {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", snap.ChangePercent)
}

// truncate shortens s for display in tight dashboard columns. Counts runes,
// not bytes, so multi-byte text is never cut mid-character.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
