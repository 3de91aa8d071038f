package preflight

import (
	"context"

	"stockmeta/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectories verifies every configured directory. The watch directory
// is only checked when a hot folder is configured.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if cfg.Watch.Dir != "" {
		results = append(results, CheckDirectoryAccess("Watch directory", cfg.Watch.Dir))
	}
	return results
}

// RunAll executes the directory checks followed by a Gemini probe with
// apiKey. A blank apiKey falls back to the configured key.
func RunAll(ctx context.Context, cfg *config.Config, apiKey string) []Result {
	if cfg == nil {
		return nil
	}
	results := CheckDirectories(cfg)
	if apiKey == "" {
		apiKey = cfg.Gemini.APIKey
	}
	return append(results, CheckGemini(ctx, cfg.Gemini, apiKey))
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
