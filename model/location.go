package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Location is a position inside a template source, used in diagnostics.
type Location struct {
	Line   int // 1-based
	Column int // 1-based, in runes

	lineStart int // byte offset of the line start
}

// Locate converts a byte offset within src into a line/column position.
// A leading UTF-8 BOM is not counted; CR, LF and CRLF all end a line.
func Locate(src string, offset int) Location {
	cur := 0
	if strings.HasPrefix(src, "\xef\xbb\xbf") {
		cur = 3
	}
	if offset > len(src) {
		offset = len(src)
	}
	if offset < cur {
		offset = cur
	}

	loc := Location{Line: 1, lineStart: cur}
	for cur < offset {
		c := src[cur]
		cur++
		switch c {
		case '\r':
			if cur < offset && src[cur] == '\n' {
				cur++
			}
			fallthrough
		case '\n':
			loc.Line++
			loc.lineStart = cur
		}
	}
	loc.Column = 1 + utf8.RuneCountInString(src[loc.lineStart:offset])
	return loc
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// SourceLine returns the text of the line l points into.
func (l Location) SourceLine(src string) string {
	if l.lineStart > len(src) {
		return ""
	}
	s := src[l.lineStart:]
	if p := strings.IndexAny(s, "\r\n"); p >= 0 {
		return s[:p]
	}
	return s
}
