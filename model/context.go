package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Section is one named group of key/value pairs from the configuration.
type Section = map[string]string

// Context maps section names to their key/value pairs. It is passed to
// templates as top-level bindings, so `{{ info.name }}` reads key "name"
// of section "info".
type Context map[string]Section

var reIdentifier = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// IsIdentifier reports whether s can be referenced by name from a template.
func IsIdentifier(s string) bool {
	return reIdentifier.MatchString(s)
}

// SectionNames returns the section names in sorted order.
func (c Context) SectionNames() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Dump renders every section and value, sorted, one per line. It is meant
// for diagnostics.
func (c Context) Dump() string {
	if len(c) == 0 {
		return "  <empty context>\n"
	}
	b := strings.Builder{}
	for _, name := range c.SectionNames() {
		sec := c[name]
		fmt.Fprintf(&b, "  [%s]\n", name)
		keys := make([]string, 0, len(sec))
		for k := range sec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "    %s = %q\n", k, sec[k])
		}
	}
	return b.String()
}
