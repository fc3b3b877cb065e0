package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DiscoverTestCases scans the inputs directory for serialized test cases
// named <n>.<ext> with a 1-based integer index, returning them in index
// order. Files that do not match the naming pattern are ignored.
func DiscoverTestCases(dir string) ([]TestCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inputs directory %s: %w", dir, err)
	}

	seen := make(map[int]string)
	var cases []TestCase
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext == "" {
			continue
		}
		index, convErr := strconv.Atoi(strings.TrimSuffix(name, ext))
		if convErr != nil || index < 1 {
			continue
		}
		if prev, dup := seen[index]; dup {
			return nil, fmt.Errorf("duplicate test index %d: %s and %s", index, prev, name)
		}
		seen[index] = name
		cases = append(cases, TestCase{
			Index: index,
			Path:  filepath.Join(dir, name),
			Ext:   strings.TrimPrefix(ext, "."),
		})
	}

	sort.Slice(cases, func(i, j int) bool { return cases[i].Index < cases[j].Index })
	return cases, nil
}

// DiscoverImplementations lists the implementation identifiers available in
// the implementations directory (one subdirectory per implementation).
func DiscoverImplementations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read implementations directory %s: %w", dir, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
