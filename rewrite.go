package graft

import "log/slog"

// Rewriter applies an ordered rule sequence to one file's content in
// memory. Later rules see earlier rules' output. The caller owns the
// write-back decision; Rewrite itself never touches the filesystem.
type Rewriter struct {
	rules []Rule
}

func NewRewriter(rules []Rule) *Rewriter {
	return &Rewriter{rules: rules}
}

func (r *Rewriter) Rewrite(path, content string) (string, bool) {
	changed := false
	for _, rule := range r.rules {
		next, did := rule.Apply(content)
		if did {
			slog.Debug("rule applied", "rule", rule.Name(), "path", path)
			changed = true
			content = next
		}
	}
	return content, changed
}
