// Package proctitle names the server process so several site instances can
// be told apart in ps and top.
package proctitle

import "strings"

// MaxLen is the kernel limit for a thread name, without the trailing NUL.
const MaxLen = 15

// Name builds the process name for a site instance. Non-production
// instances carry a short env suffix, e.g. "helio:dev".
func Name(siteName, env string) string {
	base := slug(siteName)
	if base == "" {
		base = "site"
	}

	suffix := ""
	switch env = strings.ToLower(strings.TrimSpace(env)); env {
	case "", "production":
	case "development":
		suffix = ":dev"
	default:
		suffix = ":" + slug(env)
	}

	if len(base)+len(suffix) > MaxLen {
		keep := MaxLen - len(suffix)
		if keep < 1 {
			return base[:min(len(base), MaxLen)]
		}
		base = base[:min(len(base), keep)]
	}
	return base + suffix
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '.':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
