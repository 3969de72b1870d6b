// Package userid canonicalizes display names into stable identities.
// Ladder keys and bracket identities are both formed this way, so two
// spellings of the same name always collide.
package userid

import "strings"

// New lowercases name and strips everything that is not an ASCII letter or
// digit; non-ASCII letters are dropped too.
func New(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}
