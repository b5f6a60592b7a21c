package graft

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

type catalogSchema struct {
	Batches []batchSchema `hcl:"batch,block"`
	Patches []patchSchema `hcl:"patch,block"`
}

type batchSchema struct {
	Name         string              `hcl:"name,label"`
	Pattern      string              `hcl:"pattern"`
	Imports      []importSchema      `hcl:"inject_import,block"`
	Placeholders []placeholderSchema `hcl:"replace_placeholder,block"`
	Fields       []fieldSchema       `hcl:"inject_field,block"`
	Params       []paramSchema       `hcl:"inject_param,block"`
	Args         []argSchema         `hcl:"inject_arg,block"`
}

type importSchema struct {
	Anchor  string `hcl:"anchor"`
	Literal string `hcl:"literal"`
}

type placeholderSchema struct {
	Marker      string `hcl:"marker"`
	Fallback    string `hcl:"fallback"`
	Replacement string `hcl:"replacement"`
}

type fieldSchema struct {
	Structs []string `hcl:"structs"`
	Name    string   `hcl:"name"`
	Decl    string   `hcl:"decl"`
}

type paramSchema struct {
	Constructors []string `hcl:"constructors"`
	Name         string   `hcl:"name"`
	Param        string   `hcl:"param"`
	Assign       string   `hcl:"assign,optional"`
}

type argSchema struct {
	Calls    []string `hcl:"calls"`
	Arg      string   `hcl:"arg"`
	Suppress []string `hcl:"suppress,optional"`
}

type patchSchema struct {
	Name   string `hcl:"name,label"`
	File   string `hcl:"file"`
	Anchor string `hcl:"anchor"`
	Line   string `hcl:"line"`
	Guard  string `hcl:"guard,optional"`
}

// LoadCatalog reads and decodes the HCL rule configuration at path.
func LoadCatalog(path string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}
	return decodeCatalog(file.Body)
}

// ParseCatalog decodes an in-memory HCL rule configuration, e.g. one
// assembled from a markdown playbook.
func ParseCatalog(src []byte, filename string) (*Catalog, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}
	return decodeCatalog(file.Body)
}

func decodeCatalog(body hcl.Body) (*Catalog, error) {
	var raw catalogSchema
	if diags := gohcl.DecodeBody(body, evalContext(), &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding configuration: %w", diags)
	}

	catalog := &Catalog{}
	for _, b := range raw.Batches {
		batch := Batch{Name: b.Name, Pattern: b.Pattern}
		for _, s := range b.Imports {
			batch.Rules = append(batch.Rules, ImportRule{Anchor: s.Anchor, Literal: s.Literal})
		}
		for _, s := range b.Placeholders {
			batch.Rules = append(batch.Rules, PlaceholderRule{Marker: s.Marker, Fallback: s.Fallback, Replacement: s.Replacement})
		}
		for _, s := range b.Fields {
			batch.Rules = append(batch.Rules, FieldRule{Structs: s.Structs, Field: s.Name, Decl: s.Decl})
		}
		for _, s := range b.Params {
			batch.Rules = append(batch.Rules, ParamRule{Constructors: s.Constructors, Param: s.Name, Decl: s.Param, Assign: s.Assign})
		}
		for _, s := range b.Args {
			batch.Rules = append(batch.Rules, ArgRule{Calls: s.Calls, Arg: s.Arg, Suppress: s.Suppress})
		}
		catalog.Batches = append(catalog.Batches, batch)
	}

	for _, p := range raw.Patches {
		anchor, err := regexp.Compile(p.Anchor)
		if err != nil {
			return nil, fmt.Errorf("patch %q: invalid anchor: %w", p.Name, err)
		}
		guard := p.Guard
		if guard == "" {
			guard = strings.TrimSpace(strings.SplitN(p.Line, ":", 2)[0])
		}
		catalog.Patches = append(catalog.Patches, AnchorPatch{
			Label:  p.Name,
			File:   p.File,
			Anchor: anchor,
			Line:   p.Line,
			Guard:  guard,
		})
	}

	slog.Debug("catalog decoded", "batches", len(catalog.Batches), "patches", len(catalog.Patches))
	return catalog, nil
}

// evalContext exposes the process environment as an `env` object so rule
// snippets can interpolate variables, e.g. "${env.HOME}".
func evalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	env := cty.EmptyObjectVal
	if len(vars) > 0 {
		env = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{Variables: map[string]cty.Value{"env": env}}
}
