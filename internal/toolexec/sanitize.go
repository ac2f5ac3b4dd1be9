package toolexec

import (
	"cmp"
	"slices"
	"strings"
)

// Redacted replaces secret values in sanitized text.
const Redacted = "[REDACTED]"

// Sanitizer removes configured secret values from text.
type Sanitizer struct {
	r *strings.Replacer
}

// NewSanitizer returns a sanitizer for the given secrets. Empty values are
// ignored. Longer secrets are matched first so that a secret containing
// another is redacted as a whole.
func NewSanitizer(secrets ...string) *Sanitizer {
	var uniq []string
	for _, s := range secrets {
		if s != "" && !slices.Contains(uniq, s) {
			uniq = append(uniq, s)
		}
	}
	if len(uniq) == 0 {
		return &Sanitizer{}
	}
	slices.SortStableFunc(uniq, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	pairs := make([]string, 0, 2*len(uniq))
	for _, s := range uniq {
		pairs = append(pairs, s, Redacted)
	}
	return &Sanitizer{r: strings.NewReplacer(pairs...)}
}

// Sanitize returns text with every secret occurrence redacted. A nil
// sanitizer returns text unchanged.
func (s *Sanitizer) Sanitize(text string) string {
	if s == nil || s.r == nil {
		return text
	}
	return s.r.Replace(text)
}

// SanitizeArgs returns a sanitized copy of args.
func (s *Sanitizer) SanitizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = s.Sanitize(a)
	}
	return out
}
