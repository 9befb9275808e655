package mapper

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// DiscoverFOVs lists the FOV identifiers in dir: every regular file with
// the pixel matrix extension, minus the extension, sorted. Staging
// leftovers from interrupted runs are skipped.
func DiscoverFOVs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing FOV directory %s: %w", dir, err)
	}

	var fovs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".staging") || !strings.HasSuffix(name, TableExt) {
			continue
		}
		fovs = append(fovs, strings.TrimSuffix(name, TableExt))
	}
	sort.Strings(fovs)
	return fovs, nil
}

// ParseFOVList splits a comma-separated FOV list, trimming whitespace and
// dropping empty entries.
func ParseFOVList(s string) []string {
	var fovs []string
	for _, part := range strings.Split(s, ",") {
		if fov := strings.TrimSpace(part); fov != "" {
			fovs = append(fovs, fov)
		}
	}
	return fovs
}
