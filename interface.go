package graft

// Run executes a full batch run with the given configuration and returns
// the summary, for callers embedding graft as a library.
func Run(cfg Config) (Summary, error) {
	app, err := NewApp(&cfg)
	if err != nil {
		return Summary{}, err
	}
	defer app.Close()
	return app.Execute()
}

// Apply runs an ordered rule sequence over content in memory and reports
// whether anything changed. No filesystem access.
func Apply(content string, rules []Rule) (string, bool) {
	return NewRewriter(rules).Rewrite("", content)
}

// ApplyCatalog runs an already-decoded catalog, bypassing config loading.
func ApplyCatalog(cfg Config, catalog *Catalog) (Summary, error) {
	app, err := NewApp(&cfg)
	if err != nil {
		return Summary{}, err
	}
	defer app.Close()
	return app.applyCatalog(catalog)
}
