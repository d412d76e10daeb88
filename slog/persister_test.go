package slog_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fwojciec/webgrab"
	"github.com/fwojciec/webgrab/mock"
	wgslog "github.com/fwojciec/webgrab/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingPersister_Save(t *testing.T) {
	t.Parallel()

	content := func(ctx context.Context) ([]byte, error) { return []byte("x"), nil }

	t.Run("logs accepted file", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Persister{
			SaveFn: func(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) (*webgrab.Outcome, error) {
				return &webgrab.Outcome{File: &webgrab.PersistedFile{URL: url, Type: webgrab.Images, Path: "/out/files/images/a.png"}}, nil
			},
		}

		p := wgslog.NewLoggingPersister(inner, logger)
		outcome, err := p.Save(context.Background(), "https://example.com/a.png", webgrab.Images, content)

		require.NoError(t, err)
		assert.True(t, outcome.Accepted())
		output := buf.String()
		assert.Contains(t, output, "level=INFO")
		assert.Contains(t, output, "msg=save")
		assert.Contains(t, output, "type=images")
		assert.Contains(t, output, "path=/out/files/images/a.png")
		assert.Contains(t, output, "existing=false")
	})

	t.Run("logs rejection as warning", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Persister{
			SaveFn: func(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) (*webgrab.Outcome, error) {
				return &webgrab.Outcome{Reason: "invalid PDF signature"}, nil
			},
		}

		p := wgslog.NewLoggingPersister(inner, logger)
		outcome, err := p.Save(context.Background(), "https://example.com/cv.pdf", webgrab.Documents, content)

		require.NoError(t, err)
		assert.False(t, outcome.Accepted())
		output := buf.String()
		assert.Contains(t, output, "level=WARN")
		assert.Contains(t, output, `reason="invalid PDF signature"`)
	})

	t.Run("logs suspicious file as warning", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Persister{
			SaveFn: func(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) (*webgrab.Outcome, error) {
				return &webgrab.Outcome{
					File:    &webgrab.PersistedFile{URL: url, Type: webgrab.Videos, Path: "/out/files/videos/v.mp4"},
					Warning: "small video",
				}, nil
			},
		}

		p := wgslog.NewLoggingPersister(inner, logger)
		_, err := p.Save(context.Background(), "https://example.com/v.mp4", webgrab.Videos, content)

		require.NoError(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=WARN")
		assert.Contains(t, output, `warning="small video"`)
	})

	t.Run("logs error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		inner := &mock.Persister{
			SaveFn: func(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) (*webgrab.Outcome, error) {
				return nil, errors.New("disk full")
			},
		}

		p := wgslog.NewLoggingPersister(inner, logger)
		_, err := p.Save(context.Background(), "https://example.com/a.png", webgrab.Images, content)

		require.Error(t, err)
		output := buf.String()
		assert.Contains(t, output, "level=ERROR")
		assert.Contains(t, output, `err="disk full"`)
	})
}
