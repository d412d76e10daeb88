package webgrab

import "context"

// PersistedFile is a resource written to disk.
type PersistedFile struct {
	URL  string
	Type ResourceType
	Path string
}

// Outcome reports what happened to a save request.
type Outcome struct {
	// File is set when the resource was accepted.
	File *PersistedFile
	// Existing is true when the file was already on disk and nothing was downloaded.
	Existing bool
	// Reason explains a rejection.
	Reason string
	// Warning flags an accepted resource that looks suspicious.
	Warning string
}

// Accepted reports whether the resource ended up on disk.
func (o *Outcome) Accepted() bool {
	return o != nil && o.File != nil
}

// ContentFunc produces resource bytes. Persisters call it only when the
// destination does not exist yet.
type ContentFunc func(ctx context.Context) ([]byte, error)

// Persister validates resources and writes them to the output tree.
type Persister interface {
	// Save stores the content of url under declared type. A rejected resource
	// is reported through the Outcome, not as an error. Errors are reserved
	// for content retrieval and filesystem failures.
	Save(ctx context.Context, url string, declared ResourceType, content ContentFunc) (*Outcome, error)
}

// FailureStore persists the URLs that failed during a run.
type FailureStore interface {
	// Load returns previously failed URLs. A missing list yields no URLs.
	Load() ([]string, error)

	// Store writes urls sorted one per line, or removes the list when urls is empty.
	Store(urls []string) error
}
