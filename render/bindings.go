package render

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/adnsv/dyntex/model"
)

// Template references are checked before execution: pongo2 renders an
// unknown name as an empty string, which would silently drop configuration
// values from the document.

var (
	reTag      = regexp.MustCompile(`(?s)\{\{(.*?)\}\}|\{%(.*?)%\}|\{#.*?#\}`)
	reRef      = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*`)
	reFor      = regexp.MustCompile(`(?s)^for\s+(.*?)\s+in\s`)
	reSet      = regexp.MustCompile(`(?s)^set\s+([A-Za-z_][A-Za-z0-9_]*)\s*=`)
	reAssign   = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=[^=]`)
	reAs       = regexp.MustCompile(`\sas\s+([A-Za-z_][A-Za-z0-9_]*)`)
	reMacro    = regexp.MustCompile(`(?s)^macro\s+([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)`)
	reTagIdent = regexp.MustCompile(`^[a-z_]+`)
	reInclude  = regexp.MustCompile(`^include\s+(?:"([^"]*)"|'([^']*)')`)
	reAlias    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*$`)
)

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"true": true, "false": true, "True": true, "False": true,
	"none": true, "None": true, "nil": true,
	"forloop": true, "pongo2": true,
	"reversed": true, "sorted": true, "as": true, "with": true, "only": true,
}

// tags whose arguments are expressions
var exprTags = map[string]bool{
	"if": true, "elif": true, "firstof": true, "widthratio": true,
	"ifequal": true, "ifnotequal": true, "cycle": true,
}

type source struct {
	name string
	text string
}

type reference struct {
	name   string
	offset int
	src    *source
}

// scanState is shared by a template and everything it includes.
type scanState struct {
	dir    string
	locals map[string]string // local name to the reference it aliases, "" when opaque
	refs   []reference
	seen   map[string]bool
}

type bindingScan struct {
	src *source
	st  *scanState
}

// checkBindings scans every variable and block tag of src, and of the
// templates it includes by literal name, and verifies that the references
// they make can be satisfied by ctx, the names in builtins, or names the
// templates bind themselves. Include paths resolve against dir.
func checkBindings(name, src, dir string, ctx model.Context, builtins map[string]bool) error {
	st := &scanState{dir: dir, locals: map[string]string{}, seen: map[string]bool{}}
	if abs, err := filepath.Abs(name); err == nil {
		st.seen[abs] = true
	}
	sc := &bindingScan{src: &source{name, src}, st: st}
	sc.scan()

	for _, r := range st.refs {
		parts := strings.Split(st.resolve(r.name), ".")
		head := parts[0]
		if keywords[head] || builtins[head] {
			continue
		}
		if _, local := st.locals[head]; local {
			continue
		}
		ref := head
		sec, found := ctx[head]
		if found && len(parts) > 1 {
			ref = head + "." + parts[1]
			_, found = sec[parts[1]]
		}
		if !found {
			loc := model.Locate(r.src.text, r.offset)
			return &MissingBindingError{
				Template:  r.src.name,
				Reference: ref,
				Location:  loc,
				Line:      strings.TrimSpace(loc.SourceLine(r.src.text)),
				Context:   ctx.Dump(),
			}
		}
	}
	return nil
}

// resolve expands local aliases at the head of a dotted reference.
func (st *scanState) resolve(name string) string {
	for i := 0; i < 8; i++ {
		head, rest, dotted := strings.Cut(name, ".")
		target := st.locals[head]
		if target == "" || target == head {
			break
		}
		name = target
		if dotted {
			name += "." + rest
		}
	}
	return name
}

func (sc *bindingScan) scan() {
	text := sc.src.text
	inComment := false
	for _, m := range reTag.FindAllStringSubmatchIndex(text, -1) {
		switch {
		case m[2] >= 0:
			if !inComment {
				sc.expr(m[2], m[3])
			}
		case m[4] >= 0:
			b, e := trimTag(text, m[4], m[5])
			tag := reTagIdent.FindString(text[b:e])
			switch {
			case tag == "comment":
				inComment = true
			case tag == "endcomment":
				inComment = false
			case !inComment:
				sc.block(tag, b, e)
			}
		}
	}
}

// include scans a template pulled in by a literal include tag. Missing
// files are left to the template engine to report.
func (sc *bindingScan) include(fn string) {
	if !filepath.IsAbs(fn) {
		fn = filepath.Join(sc.st.dir, fn)
	}
	abs, err := filepath.Abs(fn)
	if err != nil || sc.st.seen[abs] {
		return
	}
	sc.st.seen[abs] = true
	buf, err := os.ReadFile(fn)
	if err != nil {
		return
	}
	sub := &bindingScan{src: &source{fn, string(buf)}, st: sc.st}
	sub.scan()
}

// trimTag narrows [b, e) to the tag content without surrounding whitespace
// or whitespace-control dashes.
func trimTag(src string, b, e int) (int, int) {
	for b < e && (isSpace(src[b]) || src[b] == '-') {
		b++
	}
	for e > b && (isSpace(src[e-1]) || src[e-1] == '-') {
		e--
	}
	return b, e
}

func (sc *bindingScan) block(tag string, b, e int) {
	s := blankStrings(sc.src.text[b:e])
	args := b + len(tag)

	switch {
	case tag == "for":
		if m := reFor.FindStringSubmatchIndex(s); m != nil {
			for _, v := range strings.Split(s[m[2]:m[3]], ",") {
				sc.bind(strings.TrimSpace(v))
			}
			sc.expr(b+m[1], e)
		}
	case tag == "set":
		if m := reSet.FindStringSubmatchIndex(s); m != nil {
			if v := strings.TrimSpace(s[m[1]:]); reAlias.MatchString(v) {
				sc.alias(s[m[2]:m[3]], v)
			} else {
				sc.bind(s[m[2]:m[3]])
			}
			sc.expr(b+m[1], e)
		}
	case tag == "with" || tag == "include":
		if tag == "include" {
			if m := reInclude.FindStringSubmatch(sc.src.text[b:e]); m != nil {
				sc.include(m[1] + m[2])
			}
		}
		if m := reAs.FindStringSubmatchIndex(s); m != nil {
			sc.bind(s[m[2]:m[3]])
			sc.expr(args, b+m[0])
			return
		}
		if tag == "include" {
			p := strings.Index(s, " with ")
			if p < 0 {
				return
			}
			args = b + p + len(" with")
		}
		sc.assignments(args, e)
	case tag == "macro":
		if m := reMacro.FindStringSubmatchIndex(s); m != nil {
			sc.bind(s[m[2]:m[3]])
			for _, p := range strings.Split(s[m[4]:m[5]], ",") {
				name, _, _ := strings.Cut(p, "=")
				sc.bind(strings.TrimSpace(name))
			}
		}
	case tag == "import":
		for _, n := range reRef.FindAllString(s[len(tag):], -1) {
			sc.bind(n)
		}
	case exprTags[tag]:
		if m := reAs.FindStringSubmatchIndex(s); m != nil {
			sc.bind(s[m[2]:m[3]])
			e = b + m[0]
		}
		sc.expr(args, e)
	}
}

// assignments handles `name=expr name=expr` argument lists.
func (sc *bindingScan) assignments(b, e int) {
	s := blankStrings(sc.src.text[b:e])
	keys := map[int]bool{}
	for _, m := range reAssign.FindAllStringSubmatchIndex(s, -1) {
		sc.bind(s[m[2]:m[3]])
		keys[m[2]] = true
	}
	for _, r := range refsIn(s) {
		if !keys[r.offset] {
			sc.st.refs = append(sc.st.refs, reference{r.name, b + r.offset, sc.src})
		}
	}
}

func (sc *bindingScan) expr(b, e int) {
	for _, r := range refsIn(blankStrings(sc.src.text[b:e])) {
		sc.st.refs = append(sc.st.refs, reference{r.name, b + r.offset, sc.src})
	}
}

func (sc *bindingScan) bind(name string) {
	if name != "" {
		sc.st.locals[name] = ""
	}
}

// alias records name as standing for target. A name bound more than one
// way is treated as opaque.
func (sc *bindingScan) alias(name, target string) {
	if prev, ok := sc.st.locals[name]; ok && prev != target {
		target = ""
	}
	sc.st.locals[name] = target
}

// refsIn lists the dotted names used as values in an expression. Filter
// names, attribute accesses on call results and digits of numeric literals
// are skipped.
func refsIn(s string) []reference {
	var out []reference
	for _, m := range reRef.FindAllStringIndex(s, -1) {
		b := m[0]
		if b > 0 && (isWordByte(s[b-1]) || s[b-1] == '.') {
			continue
		}
		j := b - 1
		for j >= 0 && isSpace(s[j]) {
			j--
		}
		if j >= 0 && s[j] == '|' {
			continue
		}
		out = append(out, reference{name: s[b:m[1]], offset: b})
	}
	return out
}

// blankStrings replaces the content of quoted literals with spaces so that
// byte offsets are preserved.
func blankStrings(s string) string {
	buf := []byte(s)
	var quote byte
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case quote == 0:
			if c == '"' || c == '\'' {
				quote = c
			}
		case c == '\\' && i+1 < len(buf):
			buf[i], buf[i+1] = ' ', ' '
			i++
		case c == quote:
			quote = 0
		default:
			buf[i] = ' '
		}
	}
	return string(buf)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
