package fs

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fwojciec/webgrab"
)

// FailedListName is the file name of the failure list inside the output directory.
const FailedListName = "failed_urls.txt"

var _ webgrab.FailureStore = (*FailureList)(nil)

// FailureList stores failed URLs as a sorted, newline-separated text file.
type FailureList struct {
	path string
}

// NewFailureList creates a FailureList stored at path.
func NewFailureList(path string) *FailureList {
	return &FailureList{path: path}
}

// Path returns the file location.
func (l *FailureList) Path() string {
	return l.path
}

// Load returns the URLs of a previous run. A missing file yields no URLs.
func (l *FailureList) Load() ([]string, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

// Store writes urls sorted, one per line. An empty list removes any file
// left by an earlier run so retries do not repeat URLs that now succeed.
func (l *FailureList) Store(urls []string) error {
	if len(urls) == 0 {
		err := os.Remove(l.path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	sorted := make([]string, len(urls))
	copy(sorted, urls)
	sort.Strings(sorted)

	return writeFile(l.path, []byte(strings.Join(sorted, "\n")+"\n"))
}

// FailedListPath returns the failure list location for an output directory.
func FailedListPath(root string) string {
	return filepath.Join(root, FailedListName)
}
