package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/webgrab/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureList(t *testing.T) {
	t.Parallel()

	t.Run("round trips sorted URLs", func(t *testing.T) {
		t.Parallel()

		path := fs.FailedListPath(t.TempDir())
		list := fs.NewFailureList(path)

		require.NoError(t, list.Store([]string{"https://example.com/b", "https://example.com/a"}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a\nhttps://example.com/b\n", string(data))

		urls, err := list.Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
	})

	t.Run("missing file loads nothing", func(t *testing.T) {
		t.Parallel()

		urls, err := fs.NewFailureList(filepath.Join(t.TempDir(), "none.txt")).Load()

		require.NoError(t, err)
		assert.Empty(t, urls)
	})

	t.Run("ignores blank lines", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "failed_urls.txt")
		require.NoError(t, os.WriteFile(path, []byte("\nhttps://a.com\n\n  https://b.com  \n"), 0644))

		urls, err := fs.NewFailureList(path).Load()

		require.NoError(t, err)
		assert.Equal(t, []string{"https://a.com", "https://b.com"}, urls)
	})

	t.Run("empty list writes nothing and removes stale file", func(t *testing.T) {
		t.Parallel()

		path := fs.FailedListPath(t.TempDir())
		list := fs.NewFailureList(path)

		require.NoError(t, list.Store(nil))
		_, err := os.Stat(path)
		assert.True(t, errors.Is(err, os.ErrNotExist))

		require.NoError(t, list.Store([]string{"https://a.com"}))
		require.NoError(t, list.Store(nil))
		_, err = os.Stat(path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}
