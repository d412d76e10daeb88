package mock

import (
	"context"

	"github.com/fwojciec/webgrab"
)

var _ webgrab.Persister = (*Persister)(nil)

// Persister is a mock implementation of webgrab.Persister.
type Persister struct {
	SaveFn func(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) (*webgrab.Outcome, error)
}

func (p *Persister) Save(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) (*webgrab.Outcome, error) {
	return p.SaveFn(ctx, url, declared, content)
}

var _ webgrab.FailureStore = (*FailureStore)(nil)

// FailureStore is a mock implementation of webgrab.FailureStore.
type FailureStore struct {
	LoadFn  func() ([]string, error)
	StoreFn func(urls []string) error
}

func (s *FailureStore) Load() ([]string, error) {
	return s.LoadFn()
}

func (s *FailureStore) Store(urls []string) error {
	return s.StoreFn(urls)
}
