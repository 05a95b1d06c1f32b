package d1

import "regexp"

var (
	readOnlyPattern = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`)
	ctePattern      = regexp.MustCompile(`(?i)^\s*WITH\b`)
	dmlPattern      = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|REPLACE)\b`)
)

// IsReadOnly reports whether sql starts with SELECT or WITH.
// Only such statements are safe to resend after an ambiguous failure.
//
// A WITH statement naming INSERT, UPDATE, DELETE or REPLACE anywhere is treated
// as a mutation, even when the keyword only appears inside a string literal.
func IsReadOnly(sql string) bool {
	if !readOnlyPattern.MatchString(sql) {
		return false
	}
	return !ctePattern.MatchString(sql) || !dmlPattern.MatchString(sql)
}
