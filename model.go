package graft

// Span is a half-open [Start, End) byte range inside one file's content.
type Span struct {
	Start int
	End   int
}

func (s Span) Of(content string) string { return content[s.Start:s.End] }

// FileChange carries the fully rewritten content for one file.
type FileChange struct {
	Path    string
	Content string
}

// Summary is the per-file verdict report of one run: every visited path
// lands in exactly one list.
type Summary struct {
	Modified  []string
	Unchanged []string
	Failed    []string
	Message   string
}

// Catalog is the externally supplied rule configuration for one run. It is
// read-only once loaded; the engine never embeds target names.
type Catalog struct {
	Batches []Batch
	Patches []AnchorPatch
}

// Batch binds a glob pattern to the ordered rule sequence applied to every
// file the pattern matches.
type Batch struct {
	Name    string
	Pattern string
	Rules   []Rule
}
