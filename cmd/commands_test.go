package cmd

import (
	"github.com/LIKO-12/Discord/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestLookupCommand_Raw(t *testing.T) {
	out, err := executeCommand(t, "lookup", "--raw", "gpu.clear")
	require.NoError(t, err)
	assert.True(
		t,
		strings.HasPrefix(out, "# [GPU.clear]("+docs.DefaultBaseURL),
		out,
	)
	assert.Contains(t, out, "peripherals_gpu#gpuclear")
}

func TestLookupCommand_Note(t *testing.T) {
	out, err := executeCommand(t, "lookup", "--raw", "slee")
	require.NoError(t, err)
	assert.Contains(t, out, "CPU.sleep")
	assert.Contains(t, out, "'slee'")
}

func TestLookupCommand_Rendered(t *testing.T) {
	out, err := executeCommand(t, "lookup", "--style", "notty", "--width", "60", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "GPU.clear")
	assert.Contains(t, out, "Arguments:")
	assert.Contains(t, out, "colorId")
}

func TestLookupCommand_Ambiguous(t *testing.T) {
	out, err := executeCommand(t, "lookup", "--raw", "s")
	require.NoError(t, err)
	assert.Contains(t, out, "No exact match for 's'")
	assert.Contains(t, out, "`CPU.shutdown`")
	assert.Contains(t, out, "`CPU.sleep`")
}

func TestLookupCommand_NotFound(t *testing.T) {
	_, err := executeCommand(t, "lookup", "--raw", "xyz")
	assert.ErrorContains(t, err, "no results found for 'xyz'")
}

func TestLookupCommand_InvalidUsage(t *testing.T) {
	_, err := executeCommand(t, "lookup", "--raw", "clear", "two")
	assert.ErrorContains(t, err, "invalid usage_id")
}

func TestLookupCommand_MissingDataset(t *testing.T) {
	resetCommandState(t)
	t.Setenv("LIKO_DATASET", "does-not-exist.json")
	rootCmd.SetArgs([]string{"lookup", "--raw", "clear"})
	assert.ErrorContains(t, rootCmd.Execute(), "error loading documentation")
}

func TestAliasesCommand(t *testing.T) {
	out, err := executeCommand(t, "aliases")
	require.NoError(t, err)
	assert.Contains(t, out, "ALIAS")
	assert.Contains(t, out, "gpu.clear")
	assert.Contains(t, out, "GPU.clear")
	assert.Contains(t, out, "cpu.sleep")
}

func TestAliasesCommand_Filter(t *testing.T) {
	out, err := executeCommand(t, "aliases", "SLEEP")
	require.NoError(t, err)
	assert.Contains(t, out, "cpu.sleep")
	assert.NotContains(t, out, "gpu.clear")
}

func TestSearchCommand(t *testing.T) {
	out, err := executeCommand(t, "search", "terminal")
	require.NoError(t, err)
	assert.Contains(t, out, "GPU.print")
	assert.NotContains(t, out, "GPU.clear")
}

func TestSearchCommand_NoResults(t *testing.T) {
	_, err := executeCommand(t, "search", "zyzzyva")
	assert.ErrorContains(t, err, "no results found")
}
