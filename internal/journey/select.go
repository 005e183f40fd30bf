package journey

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveSelection maps a journey selector to concrete definition files.
// "all" globs every *.json file in dir (an error when none exist);
// otherwise the selector is a comma-separated list of tokens, each either
// a direct file path or a name resolved to <dir>/<name>.json.
func ResolveSelection(dir, selector string) ([]string, error) {
	if selector == "all" {
		files, err := filepath.Glob(filepath.Join(dir, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("globbing journey dir %s: %w", dir, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no journey files found in %s", dir)
		}
		sort.Strings(files)
		return files, nil
	}

	var out []string
	for _, token := range SplitCSV(selector) {
		if isFile(token) {
			abs, err := filepath.Abs(token)
			if err != nil {
				return nil, fmt.Errorf("resolving journey path %s: %w", token, err)
			}
			out = append(out, abs)
			continue
		}
		candidate := filepath.Join(dir, token+".json")
		if !isFile(candidate) {
			return nil, fmt.Errorf("journey not found: %s (%s)", token, candidate)
		}
		out = append(out, candidate)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty journey selection %q", selector)
	}
	return out, nil
}

// LoadSelection resolves a selector and loads every matched journey.
func LoadSelection(dir, selector string) ([]*Journey, error) {
	files, err := ResolveSelection(dir, selector)
	if err != nil {
		return nil, err
	}
	journeys := make([]*Journey, 0, len(files))
	for _, path := range files {
		j, err := Load(path)
		if err != nil {
			return nil, err
		}
		journeys = append(journeys, j)
	}
	return journeys, nil
}

// FilterByCaseIDs keeps only cases whose id appears in ids. Journeys left
// with zero cases are dropped. Filter ids that matched nothing are
// reported as a warning; an empty result is an error so a typo'd filter
// fails fast instead of silently running nothing. An empty ids slice
// returns journeys unchanged.
func FilterByCaseIDs(journeys []*Journey, ids []string) ([]*Journey, error) {
	if len(ids) == 0 {
		return journeys, nil
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	matched := make(map[string]bool)
	var filtered []*Journey
	for _, j := range journeys {
		var kept []Case
		for _, c := range j.Cases {
			if wanted[c.ID] {
				kept = append(kept, c)
				matched[c.ID] = true
			}
		}
		if len(kept) > 0 {
			next := *j
			next.Cases = kept
			filtered = append(filtered, &next)
		}
	}

	var missing []string
	for id := range wanted {
		if !matched[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		slog.Warn("case ids not found and skipped", "case_ids", strings.Join(missing, ","))
	}

	if len(filtered) == 0 {
		return nil, fmt.Errorf("no cases matched case id filter: %s", strings.Join(ids, ","))
	}
	return filtered, nil
}

// SplitCSV splits a comma-separated value, trimming whitespace and
// dropping empty entries.
func SplitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
