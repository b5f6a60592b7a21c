package graft

import (
	"regexp"
	"strings"
)

// Rule is one idempotent structural edit. Apply returns the rewritten
// content and whether anything changed. Every rule checks its postcondition
// against the located span first, so applying a rule to content it already
// transformed is a no-op.
type Rule interface {
	Name() string
	Apply(content string) (string, bool)
}

// ImportRule injects an import entry into the grouped import block,
// immediately after the anchor entry.
type ImportRule struct {
	Anchor  string
	Literal string
}

func (r ImportRule) Name() string { return "inject_import" }

func (r ImportRule) Apply(content string) (string, bool) {
	block, ok := findImportBlock(content)
	if !ok {
		return content, false
	}
	body := block.Of(content)
	if hasImport(body, r.Literal) {
		return content, false
	}
	idx := strings.Index(body, r.Anchor)
	if idx < 0 {
		return content, false
	}
	lineEnd := idx + len(r.Anchor)
	if nl := strings.IndexByte(body[lineEnd:], '\n'); nl >= 0 {
		lineEnd += nl
	} else {
		lineEnd = len(body)
	}
	rewritten := body[:lineEnd] + "\n\t" + r.Literal + body[lineEnd:]
	return content[:block.Start] + rewritten + content[block.End:], true
}

func hasImport(body, literal string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == literal {
			return true
		}
	}
	return false
}

// PlaceholderRule replaces a marker comment with a concrete statement,
// keeping the fallback statement on the following line intact. Every
// marker+fallback pair in the file is rewritten.
type PlaceholderRule struct {
	Marker      string
	Fallback    string
	Replacement string
}

func (r PlaceholderRule) Name() string { return "replace_placeholder" }

func (r PlaceholderRule) Apply(content string) (string, bool) {
	if !strings.Contains(content, r.Marker) {
		return content, false
	}
	lines := strings.Split(content, "\n")
	changed := false
	for i := 0; i+1 < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != r.Marker {
			continue
		}
		if strings.TrimSpace(lines[i+1]) != r.Fallback {
			continue
		}
		lines[i] = leadingWhitespace(lines[i+1]) + r.Replacement
		changed = true
	}
	if !changed {
		return content, false
	}
	return strings.Join(lines, "\n"), true
}

func leadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// FieldRule appends a field declaration to each named struct that does not
// already declare the field.
type FieldRule struct {
	Structs []string
	Field   string
	Decl    string
}

func (r FieldRule) Name() string { return "inject_field" }

func (r FieldRule) Apply(content string) (string, bool) {
	changed := false
	for _, name := range r.Structs {
		body, ok := findStructBody(content, name)
		if !ok {
			continue
		}
		if hasField(body.Of(content), r.Field) {
			continue
		}
		content = insertLineBeforeClose(content, body.End, "\t"+r.Decl)
		changed = true
	}
	return content, changed
}

// hasField reports whether the struct body declares a field with exactly
// the given name. Comment lines and embedded type lines without a match
// are ignored.
func hasField(body, name string) bool {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		names := line
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			names = line[:i]
		}
		for _, n := range strings.Split(names, ",") {
			if strings.TrimSpace(n) == name {
				return true
			}
		}
	}
	return false
}

// insertLineBeforeClose splices a full line directly before the closing
// delimiter at closeIdx, normalizing the surrounding newlines.
func insertLineBeforeClose(content string, closeIdx int, line string) string {
	head := content[:closeIdx]
	insert := line + "\n"
	if !strings.HasSuffix(head, "\n") {
		head = strings.TrimRight(head, " \t")
		insert = "\n" + insert
	}
	return head + insert + content[closeIdx:]
}

// ParamRule appends a trailing parameter to each named constructor and the
// matching field assignment to the constructor's returned struct literal.
type ParamRule struct {
	Constructors []string
	Param        string
	Decl         string
	Assign       string
}

func (r ParamRule) Name() string { return "inject_param" }

func (r ParamRule) Apply(content string) (string, bool) {
	changed := false
	for _, fn := range r.Constructors {
		params, ok := findParams(content, fn)
		if !ok {
			continue
		}
		if hasParam(params.Of(content), r.Param) {
			continue
		}
		content = content[:params.Start] + appendToList(params.Of(content), r.Decl) + content[params.End:]
		changed = true

		if r.Assign == "" {
			continue
		}
		typeName := strings.TrimPrefix(fn, "New")
		lit, ok := findReturnLiteral(content, typeName)
		if !ok || hasAssignment(lit.Of(content), r.Param) {
			continue
		}
		content = insertAssignment(content, lit, r.Assign)
	}
	return content, changed
}

// hasParam reports whether the parameter list declares a parameter with
// exactly the given name.
func hasParam(list, name string) bool {
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexAny(part, " \t"); i >= 0 {
			part = part[:i]
		}
		if part == name {
			return true
		}
	}
	return false
}

// insertAssignment appends a field assignment line to a struct literal
// span, adding the separating comma only when the last element lacks one.
func insertAssignment(content string, lit Span, assign string) string {
	body := strings.TrimRight(lit.Of(content), " \t\n")
	if body != "" && !strings.HasSuffix(body, ",") {
		body += ","
	}
	return content[:lit.Start] + body + "\n\t\t" + assign + "\n\t" + content[lit.End:]
}

func hasAssignment(lit, field string) bool {
	re := regexp.MustCompile(`(^|[\s{,])` + regexp.QuoteMeta(field) + `\s*:`)
	return re.MatchString(lit)
}

// ArgRule appends a trailing argument to every matching call span in the
// file. A span already mentioning the argument, or any of the suppress
// tokens, is left alone (case-insensitive containment).
type ArgRule struct {
	Calls    []string
	Arg      string
	Suppress []string
}

func (r ArgRule) Name() string { return "inject_arg" }

func (r ArgRule) Apply(content string) (string, bool) {
	changed := false
	for _, call := range r.Calls {
		from := 0
		for {
			args, ok := findCallArgs(content, call, from)
			if !ok {
				break
			}
			if r.suppressed(args.Of(content)) {
				from = args.End + 1
				continue
			}
			rewritten := appendToList(args.Of(content), r.Arg)
			content = content[:args.Start] + rewritten + content[args.End:]
			changed = true
			from = args.Start + len(rewritten) + 1
		}
	}
	return content, changed
}

func (r ArgRule) suppressed(args string) bool {
	lower := strings.ToLower(args)
	if strings.Contains(lower, strings.ToLower(r.Arg)) {
		return true
	}
	for _, tok := range r.Suppress {
		if tok != "" && strings.Contains(lower, strings.ToLower(tok)) {
			return true
		}
	}
	return false
}

// appendToList appends one element to a parameter or argument list span.
// A list already ending in a separator gains no extra separator; anything
// else gains exactly one.
func appendToList(list, elem string) string {
	trimmed := strings.TrimRight(list, " \t\n")
	switch {
	case trimmed == "":
		return elem
	case strings.HasSuffix(trimmed, ","):
		if strings.HasSuffix(list, "\n") {
			return list + "\t" + elem + ",\n"
		}
		return list + " " + elem
	default:
		return list + ", " + elem
	}
}

// AnchorPatch is the single-document variant of the locate/check/insert
// pattern: find every anchor line, and insert a fixed sibling line after it
// unless the guard token already follows.
type AnchorPatch struct {
	Label  string
	File   string
	Anchor *regexp.Regexp
	Line   string
	Guard  string
}

func (p AnchorPatch) Name() string { return "patch " + p.Label }

func (p AnchorPatch) Apply(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	var out []string
	changed := false
	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		if !p.Anchor.MatchString(lines[i]) {
			continue
		}
		if i+1 < len(lines) && strings.Contains(lines[i+1], p.Guard) {
			continue
		}
		out = append(out, leadingWhitespace(lines[i])+p.Line)
		changed = true
	}
	if !changed {
		return content, false
	}
	return strings.Join(out, "\n"), true
}
