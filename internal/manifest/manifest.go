// Package manifest extracts the fuzz target catalog from the build manifest.
//
// The manifest lists targets in a single assignment block:
//
//	FUZZ_TARGETS = \
//	  test/fuzz/addition_overflow \
//	  test/fuzz/asmap
//
// Body lines carry a known path prefix and a line-continuation suffix, both
// stripped from the reported names. The first blank line ends the block.
package manifest

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

const (
	blockHeader  = "FUZZ_TARGETS ="
	targetPrefix = "test/fuzz/"
	continuation = ` \`
)

// ErrNoTargetBlock is returned when the manifest contains no FUZZ_TARGETS
// block at all. An empty block is not an error here; callers decide whether
// an empty catalog is fatal.
var ErrNoTargetBlock = errors.New("no fuzz target block in build manifest")

// Parse scans the manifest for the fuzz target block and returns the listed
// target names in manifest order.
func Parse(r io.Reader) ([]string, error) {
	targets := []string{}
	inBlock := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.ReplaceAll(line, targetPrefix, "")
		line = strings.ReplaceAll(line, continuation, "")

		if inBlock {
			if line == "" {
				return targets, nil
			}
			targets = append(targets, line)
			continue
		}
		if line == blockHeader {
			inBlock = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !inBlock {
		return nil, ErrNoTargetBlock
	}
	return targets, nil
}

// Load parses the manifest file at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
