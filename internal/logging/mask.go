package logging

import (
	"regexp"
	"strings"
)

var (
	reBearer    = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._~+/=-]+)`)
	reTokenKV   = regexp.MustCompile(`(?i)((?:api_?)?token[=:]\s*)([^\s;&]+)`)
	reDSNSecret = regexp.MustCompile(`(?i)(d1://)([^:/@]+):([^@]+)(@)`)
)

// secretEnvKeys are environment-style keys whose values are always masked.
var secretEnvKeys = []string{"CLOUDFLARE_API_TOKEN", "CF_API_TOKEN"}

// Mask replaces credentials in s with "***".
// It covers bearer headers, token=/token: pairs, the token part of a d1:// DSN,
// and secret environment assignments.
func Mask(s string) string {
	out := s
	out = reBearer.ReplaceAllString(out, "$1***")
	out = reDSNSecret.ReplaceAllString(out, "$1$2:***$4")
	out = reTokenKV.ReplaceAllString(out, "$1***")
	for _, k := range secretEnvKeys {
		if i := strings.Index(out, k+"="); i >= 0 {
			rest := out[i+len(k)+1:]
			end := strings.IndexAny(rest, " \t\n;")
			if end < 0 {
				end = len(rest)
			}
			out = out[:i+len(k)+1] + "***" + rest[end:]
		}
	}
	return out
}
