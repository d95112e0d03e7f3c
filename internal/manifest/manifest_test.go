package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargetBlock(t *testing.T) {
	input := strings.Join([]string{
		"# generated file, do not edit",
		"OTHER_TESTS = test/other/foo",
		"FUZZ_TARGETS = \\",
		"  test/fuzz/addition_overflow \\",
		"  test/fuzz/asmap \\",
		"  test/fuzz/tx_in",
		"",
		"MORE_VARS = bar",
	}, "\n")

	targets, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"addition_overflow", "asmap", "tx_in"}, targets)
}

func TestParseKeepsManifestOrder(t *testing.T) {
	input := "FUZZ_TARGETS = \\\n test/fuzz/zebra \\\n test/fuzz/alpha\n\n"

	targets, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra", "alpha"}, targets)
}

func TestParseBlockAtEOF(t *testing.T) {
	// a block not terminated by a blank line ends with the input
	input := "FUZZ_TARGETS = \\\n test/fuzz/only_one"

	targets, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"only_one"}, targets)
}

func TestParseEmptyBlock(t *testing.T) {
	targets, err := Parse(strings.NewReader("FUZZ_TARGETS = \\\n\nrest"))
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestParseNoMarker(t *testing.T) {
	input := "SOME_VAR = x\nOTHER_VAR = y\n"

	_, err := Parse(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrNoTargetBlock)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/does-not-exist")
	assert.Error(t, err)
}
