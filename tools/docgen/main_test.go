package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	client "github.com/donaldgifford/wishlist-tracker/cmd/wlt/cmd"
)

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wlt")

	require.NoError(t, generate(client.Root(), dir))

	for _, name := range []string{"wlt.md", "wlt_track.md", "wlt_history.md", "wlt_jobs_run.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}
