package domains

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
)

// loadWidgetBody reads the widget bundle named name from assetsDir. It prefers
// the exact file "<name>.html"; when a bundler emitted versioned output
// instead, it falls back to the lexically newest "<name>-*.html" file.
func loadWidgetBody(assetsDir, name string) (string, error) {
	direct := filepath.Join(assetsDir, name+".html")
	if body, err := os.ReadFile(direct); err == nil {
		return string(body), nil
	}

	g, err := glob.Compile(name + "-*.html")
	if err != nil {
		return "", fmt.Errorf("failed to compile asset pattern: %w", err)
	}

	dirEntries, err := os.ReadDir(assetsDir)
	if err != nil {
		return "", fmt.Errorf("failed to read assets dir: %w", err)
	}

	var candidates []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if g.Match(de.Name()) {
			candidates = append(candidates, de.Name())
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no widget asset matches %q in %s", name, assetsDir)
	}
	sort.Strings(candidates)

	// Versioned names sort by build suffix, so the last candidate is the
	// most recent build.
	newest := filepath.Join(assetsDir, candidates[len(candidates)-1])
	body, err := os.ReadFile(newest)
	if err != nil {
		return "", fmt.Errorf("failed to read widget asset: %w", err)
	}
	return string(body), nil
}
