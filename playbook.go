package graft

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// A playbook is a markdown document whose fenced `hcl` code blocks together
// form one rule configuration. Prose and blocks in other languages are
// ignored, so rules can live inside ordinary runbooks or review notes.

func extractConfigBlocks(source []byte) ([]string, error) {
	var blocks []string
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		lang := ""
		if fenced.Info != nil {
			lang = string(fenced.Info.Text(source))
		}
		if lang != "hcl" && lang != "graft" {
			return ast.WalkSkipChildren, nil
		}

		var content bytes.Buffer
		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			content.Write(line.Value(source))
		}
		blocks = append(blocks, content.String())
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

// ParsePlaybook extracts every hcl-tagged fenced block from a markdown
// playbook and decodes the concatenation as one catalog.
func ParsePlaybook(source string) (*Catalog, error) {
	blocks, err := extractConfigBlocks([]byte(source))
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("playbook contains no hcl code blocks")
	}
	return ParseCatalog([]byte(strings.Join(blocks, "\n")), "playbook.hcl")
}
