package rod_test

import (
	"context"
	"testing"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_Get_WithoutBrowser(t *testing.T) {
	t.Parallel()

	b := rod.NewBackend(nil)

	_, err := b.Get(context.Background(), "http://example.com", webgrab.FetchOptions{})

	require.Error(t, err)
	assert.Equal(t, webgrab.EUNAVAILABLE, webgrab.ErrorCode(err))
	assert.NoError(t, b.Close())
}

func TestBackend_Get_CanceledContext(t *testing.T) {
	t.Parallel()

	b := rod.NewBackend(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Get(ctx, "http://example.com", webgrab.FetchOptions{})

	assert.ErrorIs(t, err, context.Canceled)
}
