package cache

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MaxPreferenceKeyLength is how many characters of a preference take part
// in a comparison key. Preferences that only differ past this point share
// a key.
const MaxPreferenceKeyLength = 50

var whitespaceRun = regexp.MustCompile(`\s+`)

// ComparisonKey derives the cache key for comparing productIDs under an
// optional free-text preference:
//
//	comparison-<ids ascending, joined by "-">[-<preference prefix>]
//
// The ID set is what matters: order and duplicates are ignored. The
// preference is trimmed, cut to MaxPreferenceKeyLength runes and each
// whitespace run becomes a single "-". A blank preference adds nothing.
func ComparisonKey(productIDs []int64, preference string) string {
	ids := NormalizeIDs(productIDs)

	var b strings.Builder
	b.WriteString("comparison")
	for _, id := range ids {
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(id, 10))
	}

	if seg := preferenceSegment(preference); seg != "" {
		b.WriteByte('-')
		b.WriteString(seg)
	}
	return b.String()
}

// NormalizeIDs returns the distinct IDs in ascending order, leaving the
// input untouched.
func NormalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func preferenceSegment(preference string) string {
	p := strings.TrimSpace(preference)
	if p == "" {
		return ""
	}
	if r := []rune(p); len(r) > MaxPreferenceKeyLength {
		p = string(r[:MaxPreferenceKeyLength])
	}
	return whitespaceRun.ReplaceAllString(p, "-")
}
