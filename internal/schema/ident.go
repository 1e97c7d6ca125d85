package schema

import "regexp"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used unquoted as a SQLite
// table, column or alias name.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}
