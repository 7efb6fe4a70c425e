package trips

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const maxSlugBase = 48

// buildSlug lower-cases name into dash-separated ascii words and appends a short random suffix.
func buildSlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugBase {
			break
		}
	}
	base := strings.Trim(b.String(), "-")
	if base == "" {
		base = "trip"
	}
	return base + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
