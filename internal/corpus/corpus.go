// Package corpus tracks per-target seed corpus directories.
package corpus

import (
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Coordinator owns the existence of per-target corpus directories under a
// single seed root. It never touches corpus contents; those belong to the
// fuzzing engine of the target itself.
type Coordinator struct {
	root   string
	logger *zap.Logger
}

func NewCoordinator(root string, logger *zap.Logger) *Coordinator {
	return &Coordinator{root: root, logger: logger}
}

// Dir returns the corpus directory for target without creating it.
func (c *Coordinator) Dir(target string) string {
	return filepath.Join(c.root, target)
}

// EnsureDir creates the corpus directory for target if missing. Safe to
// call repeatedly; existing contents are left untouched.
func (c *Coordinator) EnsureDir(target string) (string, error) {
	dir := c.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Seedless reports, in sorted order, the targets whose corpus directory is
// missing or empty. Fuzzing a seedless target is legal, the engine starts
// from scratch, so this is informational only.
func (c *Coordinator) Seedless(targets []string) []string {
	seedless := []string{}
	for _, t := range targets {
		entries, err := os.ReadDir(c.Dir(t))
		if err != nil || len(entries) == 0 {
			seedless = append(seedless, t)
		}
	}
	sort.Strings(seedless)
	return seedless
}
