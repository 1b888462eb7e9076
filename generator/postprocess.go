package generator

import "strings"

// normalize trims model output; blank output becomes the empty string.
func normalize(raw string) string {
	return strings.TrimSpace(raw)
}

// Assemble joins sections in order, each introduced by its title and
// separated by blank lines.
func Assemble(sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		b.WriteString(s.Title)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(s.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}
