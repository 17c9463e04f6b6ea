package reward

import (
	"strings"

	"github.com/google/uuid"
)

const (
	tagSecondOrder = "2nd-order"
	tagThirdOrder  = "3rd-order"
)

func milestoneKey(tag string) string { return "milestone:" + tag }

func spendKey(ruleID string) string { return "spend:" + ruleID }

// codePrefix derives the readable, deterministic part of a reward coupon code.
func codePrefix(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, shortToken(p, 8))
	}
	return strings.Join(out, "-")
}

func shortToken(s string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == n {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "X"
	}
	return b.String()
}

// randomCode appends a random suffix so codes stay unguessable.
func randomCode(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return prefix + "-" + suffix
}

func newID() string {
	return uuid.NewString()
}
