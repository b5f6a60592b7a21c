package graft

import (
	"regexp"
	"strings"
)

// The locators find textual spans by matching a header with a regexp and
// then scanning forward with an explicit delimiter-depth counter. The depth
// scan stops at the delimiter that returns to depth zero, so nested braces
// or parens inside the construct do not truncate the span. Delimiters inside
// string literals are not recognized; the matched files are expected to
// follow the usual convention of not embedding unbalanced delimiters in
// literals within targeted constructs.

// matchDelim scans forward from the opening delimiter at open and returns
// the index of the close delimiter that balances it.
func matchDelim(content string, open int, o, c byte) (int, bool) {
	depth := 0
	for i := open; i < len(content); i++ {
		switch content[i] {
		case o:
			depth++
		case c:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

var importBlockRe = regexp.MustCompile(`(?m)^import \(`)

// findImportBlock returns the span between the parens of a grouped import
// declaration.
func findImportBlock(content string) (Span, bool) {
	loc := importBlockRe.FindStringIndex(content)
	if loc == nil {
		return Span{}, false
	}
	open := loc[1] - 1
	close, ok := matchDelim(content, open, '(', ')')
	if !ok {
		return Span{}, false
	}
	return Span{open + 1, close}, true
}

// findStructBody returns the span between the braces of the named struct
// type declaration.
func findStructBody(content, name string) (Span, bool) {
	re := regexp.MustCompile(`(?m)^type ` + regexp.QuoteMeta(name) + ` struct\s*\{`)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return Span{}, false
	}
	open := loc[1] - 1
	close, ok := matchDelim(content, open, '{', '}')
	if !ok {
		return Span{}, false
	}
	return Span{open + 1, close}, true
}

// findParams returns the span between the parens of the named function's
// parameter list.
func findParams(content, fn string) (Span, bool) {
	re := regexp.MustCompile(`func ` + regexp.QuoteMeta(fn) + `\(`)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return Span{}, false
	}
	open := loc[1] - 1
	close, ok := matchDelim(content, open, '(', ')')
	if !ok {
		return Span{}, false
	}
	return Span{open + 1, close}, true
}

// findCallArgs returns the argument span of the first call of the named
// function at or after offset from. Declarations (`func Name(`) and longer
// identifiers that merely end in the name are skipped.
func findCallArgs(content, callee string, from int) (Span, bool) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(callee) + `\(`)
	for from <= len(content) {
		loc := re.FindStringIndex(content[from:])
		if loc == nil {
			return Span{}, false
		}
		start := from + loc[0]
		open := from + loc[1] - 1
		from = open + 1
		if isFuncDecl(content, start) {
			continue
		}
		close, ok := matchDelim(content, open, '(', ')')
		if !ok {
			return Span{}, false
		}
		return Span{open + 1, close}, true
	}
	return Span{}, false
}

func isFuncDecl(content string, nameStart int) bool {
	head := content[:nameStart]
	return strings.HasSuffix(head, "func ")
}

// findReturnLiteral returns the span between the braces of a returned
// `&Type{...}` composite literal.
func findReturnLiteral(content, typeName string) (Span, bool) {
	re := regexp.MustCompile(`return &` + regexp.QuoteMeta(typeName) + `\{`)
	loc := re.FindStringIndex(content)
	if loc == nil {
		return Span{}, false
	}
	open := loc[1] - 1
	close, ok := matchDelim(content, open, '{', '}')
	if !ok {
		return Span{}, false
	}
	return Span{open + 1, close}, true
}
