package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlayerID(t *testing.T) {
	t.Parallel()

	id, err := ParsePlayerID("p3")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	id, err = ParsePlayerID("12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = ParsePlayerID("px")
	assert.Error(t, err)

	assert.Equal(t, "p4", PlayerID(4))
}

func TestPointDistance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, Point{X: 0, Y: 0}.Distance(Point{X: 3, Y: 4}), 1e-9)
}

func TestListDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_rallies.json"), []byte("{}"), 0644))

	names, err := ListDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_rallies.json"}, names)
	assert.True(t, InSlice("a_rallies.json", names))

	_, err = ListDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
