package trivia

import "strings"

// Slugify normalizes a category display name to the slug form the provider
// accepts: lowercase, "&" becomes "and", every other run of non-alphanumeric
// characters collapses to a single underscore.
//
//	"Arts & Literature" -> "arts_and_literature"
//	"Film  &  TV"       -> "film_and_tv"
func Slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, "&", " and ")

	var b strings.Builder
	b.Grow(len(lowered))
	pendingSep := false
	for _, r := range lowered {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
