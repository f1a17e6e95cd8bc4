package latex

import (
	"strings"
)

var escaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`#`, `\#`,
	`$`, `\$`,
	`%`, `\%`,
	`&`, `\&`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

const specials = "\\#$%&_{}~^"

// EscapeStr escapes the characters LaTeX treats specially.
func EscapeStr(s string) string {
	if strings.ContainsAny(s, specials) {
		s = escaper.Replace(s)
	}
	return s
}
