package workflow

import "strings"

const maxNameLength = 50

var nameReplacer = strings.NewReplacer(" ", "_", "/", "_", `\`, "_")

// SanitizeName converts a section or step name into a file name component:
// lower case, spaces and path separators replaced by underscores, at most 50
// characters.
func SanitizeName(name string) string {
	s := nameReplacer.Replace(strings.ToLower(name))
	if r := []rune(s); len(r) > maxNameLength {
		s = string(r[:maxNameLength])
	}
	return s
}
