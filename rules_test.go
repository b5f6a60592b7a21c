package graft

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

const handlerSrc = `package grpc

import (
	"context"
	"fmt"
)

type FooHandler struct {
	svc Service
}

func NewFooHandler(svc Service) *FooHandler {
	return &FooHandler{svc: svc}
}

func (h *FooHandler) Get(ctx context.Context) error {
	if err := h.svc.Get(ctx); err != nil {
		// TODO: log original error server-side: err
		return fmt.Errorf("internal error")
	}
	return nil
}
`

func testRules() []Rule {
	return []Rule{
		ImportRule{Anchor: `"context"`, Literal: `"log/slog"`},
		PlaceholderRule{
			Marker:      "// TODO: log original error server-side: err",
			Fallback:    `return fmt.Errorf("internal error")`,
			Replacement: `h.logger.Error("handler error", "error", err)`,
		},
		FieldRule{Structs: []string{"FooHandler"}, Field: "logger", Decl: "logger *slog.Logger"},
		ParamRule{Constructors: []string{"NewFooHandler"}, Param: "logger", Decl: "logger *slog.Logger", Assign: "logger: logger,"},
		ArgRule{Calls: []string{"NewFooHandler"}, Arg: "logger", Suppress: []string{"log"}},
	}
}

func TestImportRule(t *testing.T) {
	t.Parallel()

	rule := ImportRule{Anchor: `"context"`, Literal: `"log/slog"`}

	out, changed := rule.Apply(handlerSrc)
	require.True(t, changed)
	require.Contains(t, out, "\t\"context\"\n\t\"log/slog\"\n\t\"fmt\"")

	again, changed := rule.Apply(out)
	require.False(t, changed)
	require.Equal(t, out, again)
}

func TestImportRuleAbsentBlock(t *testing.T) {
	t.Parallel()

	rule := ImportRule{Anchor: `"context"`, Literal: `"log/slog"`}
	src := "package demo\n\nfunc main() {}\n"

	out, changed := rule.Apply(src)
	require.False(t, changed)
	require.Equal(t, src, out)
}

func TestPlaceholderRule(t *testing.T) {
	t.Parallel()

	rule := PlaceholderRule{
		Marker:      "// TODO: log original error server-side: err",
		Fallback:    `return fmt.Errorf("internal error")`,
		Replacement: `h.logger.Error("handler error", "error", err)`,
	}

	out, changed := rule.Apply(handlerSrc)
	require.True(t, changed)
	require.NotContains(t, out, "TODO: log original error")
	require.Contains(t, out, "\t\th.logger.Error(\"handler error\", \"error\", err)\n\t\treturn fmt.Errorf(\"internal error\")",
		"the fallback statement must be preserved")

	again, changed := rule.Apply(out)
	require.False(t, changed)
	require.Equal(t, out, again)
}

func TestPlaceholderRuleAllOccurrences(t *testing.T) {
	t.Parallel()

	src := "\t// M\n\tfallback()\n\tok()\n\t// M\n\tfallback()\n"
	rule := PlaceholderRule{Marker: "// M", Fallback: "fallback()", Replacement: "handle(err)"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Equal(t, "\thandle(err)\n\tfallback()\n\tok()\n\thandle(err)\n\tfallback()\n", out)
}

// Scenario: a struct gains the injected field exactly once.
func TestFieldRule(t *testing.T) {
	t.Parallel()

	src := "package demo\n\ntype Foo struct {\n\tBar int\n}\n"
	rule := FieldRule{Structs: []string{"Foo"}, Field: "logger", Decl: "logger *slog.Logger"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Contains(t, out, "Bar int")
	require.Contains(t, out, "\tlogger *slog.Logger\n}")

	again, changed := rule.Apply(out)
	require.False(t, changed, "second application must be a no-op")
	require.Equal(t, out, again)
}

func TestFieldRuleSingleLineStruct(t *testing.T) {
	t.Parallel()

	src := "package demo\n\ntype Foo struct { Bar int }\n"
	rule := FieldRule{Structs: []string{"Foo"}, Field: "logger", Decl: "logger *slog.Logger"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Contains(t, out, "Bar int")
	require.Contains(t, out, "logger *slog.Logger")

	_, changed = rule.Apply(out)
	require.False(t, changed)
}

func TestFieldRulePreciseNameCheck(t *testing.T) {
	t.Parallel()

	// A field merely containing the name as a substring must not suppress
	// the injection.
	src := "package demo\n\ntype Foo struct {\n\tloggerFactory func()\n}\n"
	rule := FieldRule{Structs: []string{"Foo"}, Field: "logger", Decl: "logger *slog.Logger"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Contains(t, out, "loggerFactory func()")
	require.Contains(t, out, "logger *slog.Logger")
}

// Scenario: the constructor signature gains a trailing parameter and the
// returned literal gains the matching assignment.
func TestParamRule(t *testing.T) {
	t.Parallel()

	src := "package demo\n\nfunc NewFoo(x int) *Foo {\n\treturn &Foo{x: x}\n}\n"
	rule := ParamRule{Constructors: []string{"NewFoo"}, Param: "logger", Decl: "logger *slog.Logger", Assign: "logger: logger,"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Contains(t, out, "func NewFoo(x int, logger *slog.Logger) *Foo")
	require.Contains(t, out, "logger: logger,")

	again, changed := rule.Apply(out)
	require.False(t, changed)
	require.Equal(t, out, again)
}

func TestParamRuleTrailingComma(t *testing.T) {
	t.Parallel()

	src := "func NewFoo(\n\tx int,\n) *Foo {\n\treturn &Foo{\n\t\tx: x,\n\t}\n}\n"
	rule := ParamRule{Constructors: []string{"NewFoo"}, Param: "logger", Decl: "logger *slog.Logger", Assign: "logger: logger,"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Contains(t, out, "\tx int,\n\tlogger *slog.Logger,\n)")
	require.NotContains(t, out, ",,", "a trailing separator must not be doubled")
	require.Contains(t, out, "\t\tx: x,\n\t\tlogger: logger,\n\t}")
}

func TestParamRuleEmptyList(t *testing.T) {
	t.Parallel()

	src := "func NewFoo() *Foo {\n\treturn &Foo{}\n}\n"
	rule := ParamRule{Constructors: []string{"NewFoo"}, Param: "logger", Decl: "logger *slog.Logger", Assign: "logger: logger,"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Contains(t, out, "func NewFoo(logger *slog.Logger) *Foo")
	require.Contains(t, out, "logger: logger,")
}

// Scenario: a bare call gains the trailing argument; a call already passing
// a related value is left alone.
func TestArgRule(t *testing.T) {
	t.Parallel()

	rule := ArgRule{Calls: []string{"NewFoo"}, Arg: "logger"}

	out, changed := rule.Apply("h := NewFoo(1)\n")
	require.True(t, changed)
	require.Contains(t, out, "NewFoo(1, logger)")

	_, changed = rule.Apply(out)
	require.False(t, changed)

	same, changed := rule.Apply("h := NewFoo(1, logger)\n")
	require.False(t, changed)
	require.Equal(t, "h := NewFoo(1, logger)\n", same)
}

func TestArgRuleSuppressTokens(t *testing.T) {
	t.Parallel()

	rule := ArgRule{Calls: []string{"NewFoo"}, Arg: "logger", Suppress: []string{"log"}}

	// A differently named but related value suppresses the injection.
	src := "h := NewFoo(1, appLog)\n"
	out, changed := rule.Apply(src)
	require.False(t, changed)
	require.Equal(t, src, out)
}

func TestArgRuleAllCallSites(t *testing.T) {
	t.Parallel()

	src := "a := NewFoo(1)\nb := NewFoo(2)\nc := NewFoo(3, logger)\n"
	rule := ArgRule{Calls: []string{"NewFoo"}, Arg: "logger"}

	out, changed := rule.Apply(src)
	require.True(t, changed)
	require.Equal(t, "a := NewFoo(1, logger)\nb := NewFoo(2, logger)\nc := NewFoo(3, logger)\n", out)
}

func TestAppendToList(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		list string
		want string
	}{
		{name: "empty", list: "", want: "x"},
		{name: "single", list: "a int", want: "a int, x"},
		{name: "trailing comma same line", list: "a int,", want: "a int, x"},
		{name: "multiline trailing comma", list: "\n\ta int,\n", want: "\n\ta int,\n\tx,\n"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, appendToList(tc.list, "x"))
		})
	}
}

func TestAnchorPatch(t *testing.T) {
	t.Parallel()

	compose := `services:
  alpha:
    healthcheck:
      test: ["CMD", "wget", "http://localhost/healthz"]
      interval: 10s
  beta:
    healthcheck:
      test: ["CMD", "wget", "http://localhost/healthz"]
      interval: 10s
`
	patch := AnchorPatch{
		Label:  "healthcheck",
		Anchor: regexp.MustCompile(`interval: 10s`),
		Line:   "start_period: 30s",
		Guard:  "start_period",
	}

	out, changed := patch.Apply(compose)
	require.True(t, changed)
	require.Equal(t, 2, len(regexp.MustCompile(`start_period: 30s`).FindAllString(out, -1)))
	require.Contains(t, out, "      interval: 10s\n      start_period: 30s")

	again, changed := patch.Apply(out)
	require.False(t, changed)
	require.Equal(t, out, again)
}

// Applying the five rule kinds in different orders over disjoint spans must
// converge on the same content.
func TestRuleOrderIndependence(t *testing.T) {
	t.Parallel()

	src := handlerSrc + "\nfunc wire() *FooHandler {\n\treturn NewFooHandler(svc)\n}\n"
	rules := testRules()

	forward, changedFwd := Apply(src, rules)
	require.True(t, changedFwd)

	reversed := make([]Rule, 0, len(rules))
	for i := len(rules) - 1; i >= 0; i-- {
		reversed = append(reversed, rules[i])
	}
	backward, changedBwd := Apply(src, reversed)
	require.True(t, changedBwd)

	require.Equal(t, forward, backward)
}

func TestNoOpOnNonMatchingFile(t *testing.T) {
	t.Parallel()

	src := "package other\n\nfunc Helper() int { return 1 }\n"
	out, changed := Apply(src, testRules())
	require.False(t, changed)
	require.Equal(t, src, out)
}

// A full transform followed by a second pass is byte-identical.
func TestRewriteIdempotence(t *testing.T) {
	t.Parallel()

	src := handlerSrc + "\nfunc wire() *FooHandler {\n\treturn NewFooHandler(svc)\n}\n"

	once, changed := Apply(src, testRules())
	require.True(t, changed)

	twice, changed := Apply(once, testRules())
	require.False(t, changed)
	require.Equal(t, once, twice)
}
